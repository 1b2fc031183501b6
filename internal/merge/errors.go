package merge

import (
	"errors"
	"fmt"
)

var (
	ErrArgument        = errors.New("invalid argument")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnsupported     = errors.New("unsupported operation")
	ErrMissingFacet    = fmt.Errorf("%w: item has no facet for source", ErrUnsupported)
	ErrClosed          = errors.New("collection closed")
)

// SourceFault records a failed call against one source.
type SourceFault struct {
	SourceID string
	Op       string
	Err      error
}

func (f *SourceFault) Error() string {
	return fmt.Sprintf("source %s: %s: %v", f.SourceID, f.Op, f.Err)
}

func (f *SourceFault) Unwrap() error {
	return f.Err
}

func fault(sourceID, op string, err error) error {
	return &SourceFault{SourceID: sourceID, Op: op, Err: err}
}
