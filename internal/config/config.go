// Package config loads reportbuilder settings.
//
// Sources are layered, later ones winning: built-in defaults, the YAML
// config file, REPORTBUILDER_* environment variables, then CLI flags that
// were explicitly set.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/execution"
)

// Executor modes.
const (
	ModeMock = "mock"
	ModeHTTP = "http"
	ModeSQL  = "sql"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Defaults.
const (
	DefaultDatabase = "reportbuilder.db"
	DefaultMode     = ModeMock
	DefaultFormat   = FormatText
)

// Config holds every setting the CLI needs.
type Config struct {
	// Datasource is stamped on new selections.
	Datasource string `koanf:"datasource" validate:"required"`

	// CatalogDir is a CUE catalog directory. Empty means the executor's
	// own catalog: the builtin demo tables for mock, the remote service for
	// http, the introspected data database for sql.
	CatalogDir string `koanf:"catalog_dir"`

	// Database is the SQLite file holding templates and run history.
	Database string `koanf:"database" validate:"required"`

	Executor ExecutorConfig `koanf:"executor"`

	Format  string `koanf:"format" validate:"oneof=text json"`
	Verbose bool   `koanf:"verbose"`
}

// ExecutorConfig selects and tunes the report executor.
type ExecutorConfig struct {
	Mode string `koanf:"mode" validate:"oneof=mock http sql"`

	// BaseURL and Token address the remote report service (http).
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// Data is the SQLite file queried in sql mode.
	Data string `koanf:"data" validate:"required_if=Mode sql"`

	PreviewRows int `koanf:"preview_rows" validate:"gte=1"`

	// Seed makes mock values reproducible. Zero picks a random seed.
	Seed uint64 `koanf:"seed"`

	// Latency delays every mock answer.
	Latency time.Duration `koanf:"latency" validate:"gte=0"`
}

// defaults returns the lowest configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"datasource":            builder.DefaultDatasourceID,
		"catalog_dir":           "",
		"database":              DefaultDatabase,
		"executor.mode":         DefaultMode,
		"executor.base_url":     execution.DefaultBaseURL,
		"executor.token":        "",
		"executor.timeout":      execution.DefaultTimeout.String(),
		"executor.data":         "",
		"executor.preview_rows": execution.DefaultPreviewRows,
		"executor.seed":         0,
		"executor.latency":      "0s",
		"format":                DefaultFormat,
		"verbose":               false,
	}
}

// keys lists every configuration key.
func keys() []string {
	keys := make([]string, 0, len(defaults()))
	for k := range defaults() {
		keys = append(keys, k)
	}
	return keys
}

// Validate checks field constraints. Errors name the koanf key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q validation (value %v)", fieldKey(fe), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// fieldKey turns "Config.executor.mode" into "executor.mode".
func fieldKey(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	return key
}
