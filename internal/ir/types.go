package ir

import (
	"encoding/json"
	"fmt"
)

// Table is a table instance chosen for a report.
// Alias is the reference key used by every other entity.
type Table struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Alias  string `json:"alias" validate:"required"`
	Schema string `json:"schema,omitempty"`
}

// Field is a selected column. Identity is (TableAlias, Column).
type Field struct {
	TableAlias  string      `json:"table_alias" validate:"required"`
	Column      string      `json:"column" validate:"required"`
	Alias       string      `json:"alias,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty" validate:"omitempty,aggregation"`
	Visible     bool        `json:"visible"`
}

// OutputName is the column name the field produces in results.
func (f Field) OutputName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Column
}

// VisibleOutputNames returns the result column names of the visible fields
// in order. A name already taken gets the first free "_2", "_3", ... suffix
// so every result column stays addressable.
func VisibleOutputNames(fields []Field) []string {
	names := make([]string, 0, len(fields))
	taken := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !f.Visible {
			continue
		}
		name := f.OutputName()
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", f.OutputName(), n)
		}
		taken[name] = true
		names = append(names, name)
	}
	return names
}

// Filter restricts rows. Several filters on one column are ANDed.
type Filter struct {
	TableAlias string   `json:"table_alias" validate:"required"`
	Column     string   `json:"column" validate:"required"`
	Operator   Operator `json:"operator" validate:"required,operator"`
	Value      Value    `json:"value"`
	DataType   DataType `json:"data_type" validate:"required,datatype"`
}

// filterJSON mirrors Filter with the value left undecoded.
type filterJSON struct {
	TableAlias string          `json:"table_alias"`
	Column     string          `json:"column"`
	Operator   Operator        `json:"operator"`
	Value      json.RawMessage `json:"value"`
	DataType   DataType        `json:"data_type"`
}

// UnmarshalJSON decodes the value according to data_type.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw filterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var val Value = Null{}
	if len(raw.Value) > 0 {
		v, err := UnmarshalTyped(raw.Value, raw.DataType)
		if err != nil {
			return fmt.Errorf("filter %s.%s value: %w", raw.TableAlias, raw.Column, err)
		}
		val = v
	}

	*f = Filter{
		TableAlias: raw.TableAlias,
		Column:     raw.Column,
		Operator:   raw.Operator,
		Value:      val,
		DataType:   raw.DataType,
	}
	return nil
}

// Sort orders results by a field key ("alias.column" or an output alias).
type Sort struct {
	Field     string    `json:"field" validate:"required"`
	Direction Direction `json:"direction" validate:"required,oneof=ASC DESC"`
}

// Join links two tables by alias.
type Join struct {
	LeftTable  string   `json:"left_table" validate:"required"`
	RightTable string   `json:"right_table" validate:"required"`
	JoinType   JoinType `json:"join_type" validate:"required,oneof=INNER LEFT RIGHT FULL"`
	Condition  string   `json:"condition" validate:"required"`
}

// QueryConfiguration is the assembled, immutable query description
// handed to an execution collaborator.
type QueryConfiguration struct {
	DatasourceID string   `json:"datasource_id"`
	Tables       []Table  `json:"tables" validate:"dive"`
	Joins        []Join   `json:"joins" validate:"dive"`
	Fields       []Field  `json:"fields" validate:"dive"`
	Filters      []Filter `json:"filters" validate:"dive"`
	GroupBy      []string `json:"group_by"`
	OrderBy      []Sort   `json:"order_by" validate:"dive"`
	Limit        *int     `json:"limit,omitempty" validate:"omitempty,gte=1"`
}

// Clone returns a structural copy that shares no memory with c.
func (c QueryConfiguration) Clone() QueryConfiguration {
	out := QueryConfiguration{
		DatasourceID: c.DatasourceID,
		Tables:       cloneSlice(c.Tables),
		Joins:        cloneSlice(c.Joins),
		Fields:       cloneSlice(c.Fields),
		Filters:      make([]Filter, len(c.Filters)),
		GroupBy:      cloneSlice(c.GroupBy),
		OrderBy:      cloneSlice(c.OrderBy),
	}
	for i, f := range c.Filters {
		f.Value = Clone(f.Value)
		out.Filters[i] = f
	}
	if c.Limit != nil {
		limit := *c.Limit
		out.Limit = &limit
	}
	return out
}

// cloneSlice copies s, returning an empty non-nil slice for nil input so
// the JSON form is always [] rather than null.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// RunRequest is the payload sent to the execution collaborator.
type RunRequest struct {
	QueryConfig    QueryConfiguration `json:"query_config"`
	ExportFormat   string             `json:"export_format,omitempty"`
	TemplateName   string             `json:"template_name,omitempty"`
	SaveAsTemplate bool               `json:"save_as_template"`
}

// RunResponse is the execution collaborator's answer.
type RunResponse struct {
	Success       bool     `json:"success"`
	Data          []Row    `json:"data,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	RowCount      int      `json:"row_count"`
	ExecutionTime float64  `json:"execution_time"` // seconds
	ExportFileURL string   `json:"export_file_url,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// Template is a named, saved configuration.
type Template struct {
	Name               string             `json:"name" validate:"required"`
	QueryConfiguration QueryConfiguration `json:"query_configuration"`
}
