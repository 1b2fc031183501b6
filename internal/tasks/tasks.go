package tasks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/unison/internal/formatter"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

const defaultPageSize = 50

// SourceCoverage reports how much of a merged collection one source backs.
type SourceCoverage struct {
	SourceID string
	Present  int                         // Merged items with a facet from this source
	Missing  []*merge.Item[models.Track] // Merged items this source lacks
}

// CoverageResult contains the per-source comparison of a merged collection.
type CoverageResult struct {
	Positions int // Global positions read
	Items     int // Distinct merged items
	Shared    int // Merged items present in every source
	Sources   []SourceCoverage
}

// ExportOpts configures [Engine.ExportPages].
type ExportOpts struct {
	Format    formatter.Format
	Path      string    // Output file; takes precedence over Writer
	Writer    io.Writer // Output stream when Path is empty
	PageSize  int       // Items per page (default: engine page size)
	RateLimit float64   // Pages per second; <= 0 means unlimited
}

// ExportResult summarizes an export.
type ExportResult struct {
	Rows  int
	Pages int
	Path  string
}

// Engine runs tasks over merged track collections.
type Engine struct {
	logger   *log.Logger
	pageSize int
}

// NewEngine creates an Engine. pageSize <= 0 selects the default of 50.
func NewEngine(logger *log.Logger, pageSize int) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Engine{logger: logger, pageSize: pageSize}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func pages(total, size int) int {
	return (total + size - 1) / size
}

// Coverage pages through coll and reports, per source, the merged items without a facet from it.
func (e *Engine) Coverage(ctx context.Context, coll *merge.Collection[models.Track], progress chan<- ProgressUpdate) (*CoverageResult, error) {
	if coll == nil {
		return nil, fmt.Errorf("%w: collection not initialized", shared.ErrServiceUnavailable)
	}

	sources := coll.Sources()
	result := &CoverageResult{Sources: make([]SourceCoverage, len(sources))}
	for i, s := range sources {
		result.Sources[i].SourceID = s.ID
	}

	seen := make(map[string]bool)
	var items []*merge.Item[models.Track]

	total := coll.TotalCount()
	steps := pages(total, e.pageSize)
	for step, offset := 1, 0; offset < coll.TotalCount(); step, offset = step+1, offset+e.pageSize {
		page, err := coll.GetItems(ctx, e.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read page at offset %d: %w", offset, err)
		}
		e.sendProgress(progress, readPageUpdate(step, max(steps, step), offset, len(page)))

		result.Positions += len(page)
		for _, item := range page {
			if seen[item.ID()] {
				continue
			}
			seen[item.ID()] = true
			items = append(items, item)
		}
	}
	result.Items = len(items)

	for _, item := range items {
		everywhere := true
		for i := range result.Sources {
			sc := &result.Sources[i]
			if _, ok := item.Facet(sc.SourceID); ok {
				sc.Present++
				continue
			}
			everywhere = false
			sc.Missing = append(sc.Missing, item)
		}
		if everywhere {
			result.Shared++
		}
	}
	for i, sc := range result.Sources {
		e.sendProgress(progress, compareUpdate(i+1, len(result.Sources), sc.SourceID))
	}

	e.logger.Debug("coverage complete", "collection", coll.Name(), "positions", result.Positions, "items", result.Items)
	e.sendProgress(progress, coverageDoneUpdate(result))
	return result, nil
}

// ExportPages writes the merged sequence of coll page by page.
func (e *Engine) ExportPages(ctx context.Context, coll *merge.Collection[models.Track], opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if coll == nil {
		return nil, fmt.Errorf("%w: collection not initialized", shared.ErrServiceUnavailable)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = e.pageSize
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatTable
	}

	w := opts.Writer
	if opts.Path != "" {
		f, err := os.Create(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if w == nil {
		return nil, fmt.Errorf("%w: export needs a path or writer", shared.ErrMissingArgument)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := &ExportResult{Path: opts.Path}
	pw := formatter.NewPageWriter(w, opts.Format)

	steps := pages(coll.TotalCount(), opts.PageSize)
	for offset := 0; offset < coll.TotalCount(); offset += opts.PageSize {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		page, err := coll.GetIndexed(ctx, opts.PageSize, offset)
		if err != nil {
			return result, fmt.Errorf("failed to read page at offset %d: %w", offset, err)
		}
		if err := pw.WritePage(page); err != nil {
			return result, err
		}

		result.Pages++
		result.Rows += len(page)
		e.sendProgress(progress, exportPageUpdate(result.Pages, max(steps, result.Pages), result.Rows))
	}

	if err := pw.Close(); err != nil {
		return result, err
	}

	e.logger.Info("export complete", "collection", coll.Name(), "rows", result.Rows, "pages", result.Pages, "format", opts.Format)
	e.sendProgress(progress, exportDoneUpdate(result))
	return result, nil
}
