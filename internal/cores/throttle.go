package cores

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/desertthunder/unison/internal/merge"
)

// Throttle limits the rate of reads and writes reaching the wrapped source.
type Throttle[T any] struct {
	merge.Source[T]
	limiter *rate.Limiter
}

// NewThrottle allows rps requests per second with the given burst. A non-positive rps disables the limit.
func NewThrottle[T any](src merge.Source[T], rps float64, burst int) *Throttle[T] {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Throttle[T]{Source: src, limiter: rate.NewLimiter(limit, max(burst, 1))}
}

func (t *Throttle[T]) GetItems(ctx context.Context, limit, offset int) ([]T, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Source.GetItems(ctx, limit, offset)
}

func (t *Throttle[T]) Add(ctx context.Context, item T, index int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.Source.Add(ctx, item, index)
}

func (t *Throttle[T]) Remove(ctx context.Context, index int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.Source.Remove(ctx, index)
}

// Close closes the wrapped source when it holds resources.
func (t *Throttle[T]) Close() error {
	if c, ok := t.Source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Refresh forwards to the wrapped source when it can re-read its total.
func (t *Throttle[T]) Refresh(ctx context.Context) error {
	r, ok := t.Source.(interface{ Refresh(context.Context) error })
	if !ok {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Refresh(ctx)
}
