package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/odoo-mcp/internal/domain"
	"github.com/ashureev/odoo-mcp/internal/shared"
	"github.com/google/uuid"
)

const (
	recordTimeout     = 2 * time.Second
	maxRecordedDetail = 512
)

// Caller executes a method on an Odoo model. *odoo.Client implements it.
type Caller interface {
	Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)
}

// Recorder persists an audit entry for each tool call.
type Recorder interface {
	RecordCall(ctx context.Context, rec *domain.CallRecord) error
}

type handlerFunc func(ctx context.Context, args map[string]any) (Result, error)

// Dispatcher routes tool calls to their handlers. It holds no per-call state;
// the only shared state is the Caller's session.
type Dispatcher struct {
	caller   Caller
	recorder Recorder
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher creates a dispatcher. recorder may be nil to disable auditing.
func NewDispatcher(caller Caller, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		caller:   caller,
		recorder: recorder,
		logger:   logger,
	}
	d.handlers = map[string]handlerFunc{
		SearchRecords:  d.searchRecords,
		CountRecords:   d.countRecords,
		GetRecord:      d.getRecord,
		ListModels:     d.listModels,
		GetModelFields: d.getModelFields,
	}
	return d
}

// Call runs the named tool. It never returns an error or panics: every
// failure is rendered into the Result.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked", "tool", name, "panic", r)
			res = ErrorResult(fmt.Errorf("internal error: %v", r))
		}
		d.observe(ctx, name, args, res, time.Since(start))
	}()

	handler, ok := d.handlers[name]
	if !ok {
		return ErrorResult(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}
	if args == nil {
		args = map[string]any{}
	}

	out, err := handler(ctx, args)
	if err != nil {
		return ErrorResult(err)
	}
	return out
}

func (d *Dispatcher) observe(ctx context.Context, name string, args map[string]any, res Result, elapsed time.Duration) {
	if res.IsError {
		d.logger.Warn("Tool call failed", "tool", name, "duration", elapsed, "error", domain.FirstLine(res.Text(), maxRecordedDetail))
	} else {
		d.logger.Info("Tool call completed", "tool", name, "duration", elapsed)
	}

	if d.recorder == nil {
		return
	}

	rec := &domain.CallRecord{
		ID:        uuid.NewString(),
		Tool:      name,
		IsError:   res.IsError,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if model, ok := args["model"].(string); ok {
		rec.Model = model
	}
	if encoded, err := json.Marshal(args); err == nil {
		rec.Arguments = string(encoded)
	}
	if res.IsError {
		rec.Message = domain.FirstLine(res.Text(), maxRecordedDetail)
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := d.recorder.RecordCall(recordCtx, rec); err != nil {
		d.logger.Warn("Failed to record tool call", "tool", name, "error", err)
	}
}

func (d *Dispatcher) searchRecords(ctx context.Context, raw map[string]any) (Result, error) {
	args, err := parseSearchArgs(raw)
	if err != nil {
		return Result{}, err
	}

	kwargs := map[string]any{"limit": SearchLimit}
	if args.Fields != nil {
		kwargs["fields"] = args.Fields
	}

	rows, err := d.caller.Call(ctx, args.Model, "search_read", []any{args.Domain}, kwargs)
	if err != nil {
		return Result{}, d.checkFields(ctx, args.Model, args.Fields, err)
	}

	records, err := decodeList(rows)
	if err != nil {
		return Result{}, fmt.Errorf("unexpected search_read result: %w", err)
	}
	if len(records) == 0 {
		return TextResult(fmt.Sprintf("0 records match in model '%s'", args.Model)), nil
	}
	return TextResult(fmt.Sprintf("Found %d records in model '%s'\n%s", len(records), args.Model, indent(rows))), nil
}

func (d *Dispatcher) countRecords(ctx context.Context, raw map[string]any) (Result, error) {
	args, err := parseCountArgs(raw)
	if err != nil {
		return Result{}, err
	}

	result, err := d.caller.Call(ctx, args.Model, "search_count", []any{args.Domain}, nil)
	if err != nil {
		return Result{}, err
	}

	var count int64
	if err := json.Unmarshal(result, &count); err != nil {
		return Result{}, fmt.Errorf("unexpected search_count result: %w", err)
	}
	return TextResult(fmt.Sprintf("Model '%s' has %d matching records", args.Model, count)), nil
}

func (d *Dispatcher) getRecord(ctx context.Context, raw map[string]any) (Result, error) {
	args, err := parseGetArgs(raw)
	if err != nil {
		return Result{}, err
	}

	kwargs := map[string]any{}
	if args.Fields != nil {
		kwargs["fields"] = args.Fields
	}

	rows, err := d.caller.Call(ctx, args.Model, "read", []any{args.IDs}, kwargs)
	if err != nil {
		return Result{}, d.checkFields(ctx, args.Model, args.Fields, err)
	}

	records, err := decodeList(rows)
	if err != nil {
		return Result{}, fmt.Errorf("unexpected read result: %w", err)
	}
	return TextResult(fmt.Sprintf("Retrieved %d records from model '%s'\n%s", len(records), args.Model, indent(rows))), nil
}

func (d *Dispatcher) listModels(ctx context.Context, _ map[string]any) (Result, error) {
	result, err := d.caller.Call(ctx, "ir.model", "search_read", []any{[]any{}}, map[string]any{
		"fields": []string{"model", "name"},
	})
	if err != nil {
		return Result{}, err
	}

	models, err := decodeModels(result)
	if err != nil {
		return Result{}, fmt.Errorf("unexpected ir.model result: %w", err)
	}
	return TextResult(formatModels(models)), nil
}

func (d *Dispatcher) getModelFields(ctx context.Context, raw map[string]any) (Result, error) {
	args, err := parseModelArgs(raw)
	if err != nil {
		return Result{}, err
	}

	result, err := d.caller.Call(ctx, args.Model, "fields_get", []any{}, map[string]any{})
	if err != nil {
		return Result{}, fmt.Errorf("fetching fields for model '%s' (is it a valid model name?): %w", args.Model, err)
	}

	fields, err := decodeObject(result)
	if err != nil {
		return Result{}, fmt.Errorf("unexpected fields_get result: %w", err)
	}
	return TextResult(fmt.Sprintf("Model '%s' has %d fields\n%s", args.Model, len(fields), indent(result))), nil
}

// checkFields turns a field-looking failure into a FieldMismatchError when the
// model's field list confirms that some requested fields do not exist.
// Otherwise the original error is returned unchanged.
func (d *Dispatcher) checkFields(ctx context.Context, model string, requested []string, cause error) error {
	if len(requested) == 0 || shared.ClassifyFailure(cause) != shared.FailureField {
		return cause
	}

	result, err := d.caller.Call(ctx, model, "fields_get", []any{}, map[string]any{
		"attributes": []string{"type"},
	})
	if err != nil {
		d.logger.Debug("Field lookup after failure did not succeed", "model", model, "error", err)
		return cause
	}
	known, err := decodeObject(result)
	if err != nil {
		d.logger.Debug("Field lookup returned unexpected payload", "model", model, "error", err)
		return cause
	}

	invalid := missingFields(requested, known)
	if len(invalid) == 0 {
		return cause
	}
	return &FieldMismatchError{Model: model, Fields: invalid, Cause: cause}
}

// missingFields returns the requested names absent from known, in request
// order and without duplicates.
func missingFields(requested []string, known map[string]json.RawMessage) []string {
	var missing []string
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
