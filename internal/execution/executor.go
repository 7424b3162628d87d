package execution

import (
	"context"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// DefaultPreviewRows is how many rows a preview returns.
const DefaultPreviewRows = 5

// Executor runs a configuration and returns tabular results.
//
// Run and Preview take the same request; Preview returns a row-limited
// subset. A response with Success false is returned as an *Error with
// ErrCodeExecutionFailed, never as a nil error.
type Executor interface {
	Run(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error)
	Preview(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error)
}

// outputColumns lists the result column names of the visible fields.
func outputColumns(cfg ir.QueryConfiguration) []string {
	return ir.VisibleOutputNames(cfg.Fields)
}

// truncate keeps the first n rows of resp and fixes up RowCount.
func truncate(resp *ir.RunResponse, n int) {
	if n >= 0 && len(resp.Data) > n {
		resp.Data = resp.Data[:n]
	}
	resp.RowCount = len(resp.Data)
}
