package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ReadPage Phase = iota
	Compare
	ExportPage
	Done
)

func (p Phase) String() string {
	switch p {
	case ReadPage:
		return "read_page"
	case Compare:
		return "compare"
	case ExportPage:
		return "export_page"
	case Done:
		return "done"
	default:
		return ""
	}
}

func readPageUpdate(step, total, offset, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Read %d items at offset %d", step, total, n, offset),
	}
}

func compareUpdate(step, total int, sourceID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Comparing against %s...", sourceID),
	}
}

func exportPageUpdate(step, total, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exported %d rows", step, total, rows),
	}
}

func coverageDoneUpdate(res *CoverageResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Coverage complete: %d merged items across %d sources", res.Items, len(res.Sources)),
		Data:    res,
	}
}

func exportDoneUpdate(res *ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Exported %d rows in %d pages", res.Rows, res.Pages),
		Data:    res,
	}
}
