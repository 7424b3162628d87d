package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/execution"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
	"github.com/hiepdl65/reportbuilder/internal/testutil"
)

// Harness is the scenario execution engine.
// It applies steps to one selection with deterministic helpers.
type Harness struct {
	store   *store.Store
	catalog *catalog.Catalog
	sel     *builder.Selection
	runner  *execution.Runner
	clock   *testutil.StepClock
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load the catalog and create a fresh in-memory database
// 2. Apply every step to a new selection, tracing each one
// 3. Evaluate assertions against the trace and final state
//
// Step errors that are part of the domain, such as running an unready
// selection, are traced and do not abort the scenario. Malformed steps,
// such as an unknown table, do.
func Run(scenario *Scenario) (*Result, error) {
	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewStepClock(time.Time{})

	st, err := store.Open(":memory:", store.WithNow(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	mock := execution.NewMockExecutor(
		execution.WithSeed(scenario.Seed),
		execution.WithMockNow(clock.Now),
	)
	runner := execution.NewRunner(mock,
		execution.WithHistory(st),
		execution.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)),
		execution.WithLogger(logger),
	)

	opts := []builder.Option{builder.WithLogger(logger)}
	if scenario.Datasource != "" {
		opts = append(opts, builder.WithDatasourceID(scenario.Datasource))
	}

	h := &Harness{
		store:   st,
		catalog: cat,
		sel:     builder.New(cat, opts...),
		runner:  runner,
		clock:   clock,
		logger:  logger,
	}

	ctx := context.Background()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	result.Configuration = h.sel.Configuration()

	actx := &AssertionContext{
		Store:     st,
		Selection: h.sel,
		Ctx:       ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Builtin(), nil
	}
	cat, err := catalog.LoadCUE(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// executeStep applies one step and appends its trace event.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	event := TraceEvent{Seq: h.clock.Tick(), Op: step.Op}

	switch step.Op {
	case OpAddTable:
		t, err := h.table(step.Table)
		if err != nil {
			return err
		}
		h.sel.AddTable(t)

	case OpRemoveTable:
		t, err := h.table(step.Table)
		if err != nil {
			return err
		}
		h.sel.RemoveTable(t.ID)

	case OpAddField:
		f := ir.Field{Visible: true}
		if err := decodeArgs(step.Args, &f); err != nil {
			return err
		}
		h.sel.AddField(f)

	case OpRemoveField:
		var f ir.Field
		if err := decodeArgs(step.Args, &f); err != nil {
			return err
		}
		h.sel.RemoveField(f.TableAlias, f.Column)

	case OpAddFilter:
		var f ir.Filter
		if err := decodeArgs(step.Args, &f); err != nil {
			return err
		}
		h.sel.AddFilter(f)

	case OpRemoveFilter:
		h.sel.RemoveFilter(*step.Index)

	case OpAddSort:
		s := ir.Sort{Direction: ir.Asc}
		if err := decodeArgs(step.Args, &s); err != nil {
			return err
		}
		h.sel.AddSort(s)

	case OpRemoveSort:
		var s ir.Sort
		if err := decodeArgs(step.Args, &s); err != nil {
			return err
		}
		h.sel.RemoveSort(s.Field)

	case OpAddJoin:
		j := ir.Join{JoinType: ir.JoinInner}
		if err := decodeArgs(step.Args, &j); err != nil {
			return err
		}
		h.sel.AddJoin(j)

	case OpRemoveJoin:
		h.sel.RemoveJoin(*step.Index)

	case OpClear:
		h.sel.ClearReport()

	case OpRun, OpPreview:
		opts := execution.RunOptions{
			SaveAsTemplate: step.Template != "",
			TemplateName:   step.Template,
		}
		run := h.runner.Run
		if step.Op == OpPreview {
			run = h.runner.Preview
		}
		resp, err := run(ctx, h.sel, opts)
		if err != nil {
			event.Error = err.Error()
		} else {
			rows := resp.RowCount
			event.Rows = &rows
			event.Columns = resp.Columns
		}

	case OpSaveTemplate:
		if err := h.store.SaveTemplate(ctx, h.sel.SaveAsTemplate(step.Template)); err != nil {
			return err
		}

	case OpLoadTemplate:
		stored, err := h.store.LoadTemplate(ctx, step.Template)
		if err != nil {
			return err
		}
		h.sel.LoadTemplate(stored.Template)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	event.Readiness = h.sel.Readiness().String()
	result.addEvent(event)
	h.logger.Debug("step applied", "seq", event.Seq, "op", event.Op, "readiness", event.Readiness)
	return nil
}

func (h *Harness) table(name string) (ir.Table, error) {
	t, ok := h.catalog.TableByName(name)
	if !ok {
		return ir.Table{}, fmt.Errorf("%w: %s", catalog.ErrUnknownTable, name)
	}
	return t, nil
}

// decodeArgs converts YAML step args to an ir entity through its JSON form,
// so filter values are typed by data_type exactly as in stored
// configurations. Keys absent from args keep the values already in out.
func decodeArgs(args map[string]interface{}, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
