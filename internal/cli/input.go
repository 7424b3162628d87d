package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// inputError marks a problem with what the user passed in: a missing or
// malformed file, or conflicting arguments.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }

func (e *inputError) Unwrap() error { return e.err }

// readConfiguration reads a query configuration JSON file, "-" meaning
// stdin. Filter values are typed by their data_type.
func readConfiguration(path string, stdin io.Reader) (ir.QueryConfiguration, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return ir.QueryConfiguration{}, &inputError{fmt.Errorf("read configuration: %w", err)}
	}

	var cfg ir.QueryConfiguration
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return ir.QueryConfiguration{}, &inputError{fmt.Errorf("parse configuration %s: %w", path, err)}
	}
	return cfg.Clone(), nil
}

// configInput resolves a command's configuration from a file argument or
// a stored template.
type configInput struct {
	Template string
}

func (in *configInput) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.Template, "template", "t", "", "use a saved template instead of a file")
}

// load returns the configuration and, when it came from a template, the
// template's name.
func (in *configInput) load(ctx context.Context, opts *RootOptions, args []string, stdin io.Reader) (ir.QueryConfiguration, string, error) {
	switch {
	case in.Template != "" && len(args) > 0:
		return ir.QueryConfiguration{}, "", &inputError{errors.New("give a configuration file or --template, not both")}
	case in.Template != "":
		st, err := store.Open(opts.Config.Database)
		if err != nil {
			return ir.QueryConfiguration{}, "", fmt.Errorf("open database %s: %w", opts.Config.Database, err)
		}
		defer st.Close()
		stored, err := st.LoadTemplate(ctx, in.Template)
		if err != nil {
			return ir.QueryConfiguration{}, "", err
		}
		return stored.QueryConfiguration, stored.Name, nil
	case len(args) == 1:
		cfg, err := readConfiguration(args[0], stdin)
		return cfg, "", err
	default:
		return ir.QueryConfiguration{}, "", &inputError{errors.New("a configuration file or --template is required")}
	}
}
