package execution

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/queryir"
	"github.com/hiepdl65/reportbuilder/internal/querysql"
)

const sqlMessage = "Query executed successfully"

// SQLExecutor compiles configurations to SQL and runs them on a database
// it does not own.
type SQLExecutor struct {
	db          *sql.DB
	previewRows int
	now         func() time.Time
	logger      *slog.Logger
}

// SQLOption configures a SQLExecutor.
type SQLOption func(*SQLExecutor)

// WithSQLPreviewRows overrides DefaultPreviewRows.
func WithSQLPreviewRows(n int) SQLOption {
	return func(e *SQLExecutor) {
		e.previewRows = n
	}
}

// WithSQLNow sets the clock used to measure execution time.
func WithSQLNow(now func() time.Time) SQLOption {
	return func(e *SQLExecutor) {
		e.now = now
	}
}

// WithSQLLogger sets the logger for compiled statements (debug level).
func WithSQLLogger(logger *slog.Logger) SQLOption {
	return func(e *SQLExecutor) {
		e.logger = logger
	}
}

// NewSQLExecutor creates an executor over db.
func NewSQLExecutor(db *sql.DB, opts ...SQLOption) *SQLExecutor {
	e := &SQLExecutor{
		db:          db,
		previewRows: DefaultPreviewRows,
		now:         time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the configuration with its own limit.
func (e *SQLExecutor) Run(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	return e.execute(ctx, req.QueryConfig, 0)
}

// Preview executes the configuration with LIMIT capped at the preview
// row count.
func (e *SQLExecutor) Preview(ctx context.Context, req ir.RunRequest) (*ir.RunResponse, error) {
	return e.execute(ctx, req.QueryConfig, e.previewRows)
}

// Compile checks, lowers and renders cfg without running it. A
// configuration without tables or fields fails with NOT_READY.
func Compile(cfg ir.QueryConfiguration, maxRows int) (string, []any, error) {
	if r := builder.ReadinessOf(cfg); r != builder.Ready {
		return "", nil, NewNotReadyError(r)
	}
	if report := queryir.Check(cfg); !report.OK() {
		return "", nil, &Error{Code: ErrCodeExecutionFailed, Message: issuesMessage(report.Errors())}
	}
	sel, err := queryir.Lower(cfg)
	if err != nil {
		return "", nil, &Error{Code: ErrCodeExecutionFailed, Message: "lower configuration", Err: err}
	}
	query, params, err := (&querysql.SQLCompiler{MaxRows: maxRows}).Compile(sel)
	if err != nil {
		return "", nil, &Error{Code: ErrCodeExecutionFailed, Message: "compile configuration", Err: err}
	}
	return query, params, nil
}

func (e *SQLExecutor) execute(ctx context.Context, cfg ir.QueryConfiguration, maxRows int) (*ir.RunResponse, error) {
	query, params, err := Compile(cfg, maxRows)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("executing query", "sql", query, "params", len(params))

	start := e.now()
	rows, err := e.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &Error{Code: ErrCodeExecutionFailed, Message: "query", Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &Error{Code: ErrCodeExecutionFailed, Message: "read columns", Err: err}
	}

	data, err := scanRows(rows, columns)
	if err != nil {
		return nil, err
	}

	return &ir.RunResponse{
		Success:       true,
		Data:          data,
		Columns:       columns,
		RowCount:      len(data),
		ExecutionTime: e.now().Sub(start).Seconds(),
		Message:       sqlMessage,
	}, nil
}

func scanRows(rows *sql.Rows, columns []string) ([]ir.Row, error) {
	data := []ir.Row{}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &Error{Code: ErrCodeExecutionFailed, Message: "scan row", Err: err}
		}

		row := make(ir.Row, len(columns))
		for i, col := range columns {
			v, err := ir.FromNative(vals[i])
			if err != nil {
				return nil, &Error{Code: ErrCodeDecode, Message: fmt.Sprintf("column %s", col), Err: err}
			}
			row[col] = v
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Code: ErrCodeExecutionFailed, Message: "iterate rows", Err: err}
	}
	return data, nil
}

func issuesMessage(issues []queryir.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}
