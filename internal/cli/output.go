package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/execution"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Report or test failure (run failed, invalid configuration, scenarios failed)
	ExitCommandError = 2 // Command error (bad config, missing file, unreachable service)
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeConfig        = "E002" // Configuration could not be loaded
	ErrCodeCatalog       = "E003" // Catalog could not be loaded
	ErrCodeReadFailed    = "E004" // Input file unreadable or malformed
	ErrCodeNotFound      = "E005" // Template, table or path not found
	ErrCodeInvalidConfig = "E006" // Query configuration failed validation
	ErrCodeNotReady      = "E007" // Selection lacks a table or a field
	ErrCodeRunFailed     = "E008" // Executor reported a failure
	ErrCodeUnauthorized  = "E009" // Report service rejected the token
	ErrCodeTransport     = "E010" // Report service unreachable
	ErrCodeStore         = "E011" // Template or history store error
	ErrCodeTestFailed    = "E012" // Harness scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps a domain error to an error code and exit code.
func classify(err error) (code string, exit int) {
	var (
		loadErr  *catalog.LoadError
		inputErr *inputError
	)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, catalog.ErrUnknownTable):
		return ErrCodeNotFound, ExitCommandError
	case errors.As(err, &inputErr):
		return ErrCodeReadFailed, ExitCommandError
	case errors.As(err, &loadErr):
		return ErrCodeCatalog, ExitCommandError
	}

	switch execution.CodeOf(err) {
	case execution.ErrCodeNotReady:
		return ErrCodeNotReady, ExitFailure
	case execution.ErrCodeExecutionFailed:
		return ErrCodeRunFailed, ExitFailure
	case execution.ErrCodeUnauthorized:
		return ErrCodeUnauthorized, ExitCommandError
	case execution.ErrCodeTransport, execution.ErrCodeDecode:
		return ErrCodeTransport, ExitCommandError
	}
	return ErrCodeGeneric, ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// The error code and exit code follow from the error's kind.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// renderTable writes rows as a light box table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}
	t.Render()
}

// renderReport writes result rows under their columns, followed by a row
// count.
func renderReport(w io.Writer, columns []string, data []ir.Row) {
	if len(data) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	rows := make([][]string, len(data))
	for i, r := range data {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = formatCell(r[col])
		}
		rows[i] = cells
	}
	renderTable(w, columns, rows)
	fmt.Fprintf(w, "(%d rows)\n", len(data))
}

// formatCell renders a value for text output. Missing cells render empty.
func formatCell(v ir.Value) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return ""
	case ir.String:
		return string(val)
	case ir.Date:
		return val.String()
	case ir.List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatCell(elem)
		}
		return strings.Join(parts, ", ")
	}
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
