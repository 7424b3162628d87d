package execution

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

const (
	// MockRowCount is how many rows a mock run synthesizes.
	MockRowCount = 10

	mockExecutionTime = 0.5
	mockMessage       = "Mock data generated successfully"
	mockDateWindow    = 30 * 24 * time.Hour
)

var mockStatuses = []string{"Active", "Inactive", "Pending"}

// MockExecutor synthesizes rows from field names. It never fails unless
// its context is cancelled.
//
// Cells are chosen by substring of the output column name, first match
// wins:
//   - "id": the 1-based row number
//   - "name": "Sample {column} {row}"
//   - "amount" or "price": a number in [0, 100) with two decimals
//   - "date" or "created": a date within the last 30 days
//   - "status": one of Active, Inactive, Pending
//   - anything else: "Value {row}-{column index}"
type MockExecutor struct {
	mu          sync.Mutex
	rng         *rand.Rand
	now         func() time.Time
	latency     time.Duration
	previewRows int
}

// MockOption configures a MockExecutor.
type MockOption func(*MockExecutor)

// WithSeed makes the synthesized values reproducible.
func WithSeed(seed uint64) MockOption {
	return func(m *MockExecutor) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMockNow sets the clock that anchors synthesized dates.
func WithMockNow(now func() time.Time) MockOption {
	return func(m *MockExecutor) {
		m.now = now
	}
}

// WithLatency delays every answer by d, or until the context is done.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockExecutor) {
		m.latency = d
	}
}

// WithMockPreviewRows overrides DefaultPreviewRows.
func WithMockPreviewRows(n int) MockOption {
	return func(m *MockExecutor) {
		m.previewRows = n
	}
}

// NewMockExecutor creates a mock executor. Without WithSeed the values
// differ between processes.
func NewMockExecutor(opts ...MockOption) *MockExecutor {
	m := &MockExecutor{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
		previewRows: DefaultPreviewRows,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run synthesizes MockRowCount rows.
func (m *MockExecutor) Run(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	columns := outputColumns(req.QueryConfig)
	rows := make([]ir.Row, MockRowCount)

	m.mu.Lock()
	now := m.now()
	for i := range rows {
		row := make(ir.Row, len(columns))
		for idx, col := range columns {
			row[col] = m.cell(col, i+1, idx, now)
		}
		rows[i] = row
	}
	m.mu.Unlock()

	return &ir.RunResponse{
		Success:       true,
		Data:          rows,
		Columns:       columns,
		RowCount:      len(rows),
		ExecutionTime: mockExecutionTime,
		Message:       mockMessage,
	}, nil
}

// Preview runs and keeps the first preview-rows rows.
func (m *MockExecutor) Preview(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	resp, err := m.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	truncate(resp, m.previewRows)
	return resp, nil
}

func (m *MockExecutor) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cell must be called with m.mu held.
func (m *MockExecutor) cell(col string, row, idx int, now time.Time) ir.Value {
	switch {
	case strings.Contains(col, "id"):
		return ir.Int(row)
	case strings.Contains(col, "name"):
		return ir.String(fmt.Sprintf("Sample %s %d", col, row))
	case strings.Contains(col, "amount"), strings.Contains(col, "price"):
		cents := math.Floor(m.rng.Float64() * 10000)
		return ir.Number(cents / 100)
	case strings.Contains(col, "date"), strings.Contains(col, "created"):
		back := time.Duration(m.rng.Int64N(int64(mockDateWindow)))
		return ir.NewDate(now.Add(-back).UTC().Truncate(time.Millisecond))
	case strings.Contains(col, "status"):
		return ir.String(mockStatuses[m.rng.IntN(len(mockStatuses))])
	default:
		return ir.String(fmt.Sprintf("Value %d-%d", row, idx))
	}
}
