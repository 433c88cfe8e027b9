package operations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"notireport/internal/charts"
	"notireport/internal/config"
	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
	"notireport/internal/exporter"
	"notireport/internal/infrastructure"
	"notireport/internal/validation"
	"notireport/pkg/contracts/domain"
)

const xlsxExt = ".xlsx"

// Request is one report generation. Input is read in full; nothing is
// retained after Run returns.
type Request struct {
	Variant  domain.VariantID
	Filename string
	Input    io.ReadSeeker
	// Month restricts every table to one month (1..12); 0 keeps all
	Month int
	// Notifiers overrides the configured comparison pair
	Notifiers []string
	// OutputName overrides the variant's default filename
	OutputName string
}

// Result is a finished report ready for handoff
type Result struct {
	Filename string
	Bytes    []byte
	Summary  domain.ReportSummary
	Skipped  []domain.SkippedRow
	// Tables are the written tables, header first, for CSV export
	Tables []exporter.Table
	Path   []domain.RunState
}

// Pipeline runs Validator, Aggregator, Chart Renderer and Report Writer in
// sequence for a single request. Runs share no mutable state.
type Pipeline struct {
	cfg        config.ReportConfig
	logger     *slog.Logger
	catalog    *Catalog
	validator  *validation.Validator
	parser     *dataprocessing.Parser
	aggregator *dataprocessing.Aggregator
	renderer   *charts.Renderer
	tracer     *ReportTracer
}

// NewPipeline wires the report components from cfg. A nil tracer disables
// instrumentation.
func NewPipeline(cfg config.ReportConfig, logger *slog.Logger, tracer *ReportTracer) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	palette, err := charts.NewPalette(cfg.Palette)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid chart palette", err)
	}
	if tracer == nil {
		if tracer, err = NewReportTracer(nil); err != nil {
			return nil, err
		}
	}

	delimiter := cfg.Delimiter()
	return &Pipeline{
		cfg:        cfg,
		logger:     infrastructure.WithComponent(logger, "pipeline"),
		catalog:    DefaultCatalog(),
		validator:  validation.NewValidator(logger, delimiter),
		parser:     dataprocessing.NewParser(logger, delimiter),
		aggregator: dataprocessing.NewAggregator(logger, cfg.Locale),
		renderer:   charts.NewRenderer(logger, palette),
		tracer:     tracer,
	}, nil
}

// Variants returns the catalogue of report layouts
func (p *Pipeline) Variants() []Variant {
	return p.catalog.All()
}

// Variant looks up one layout
func (p *Pipeline) Variant(id domain.VariantID) (Variant, bool) {
	return p.catalog.Get(id)
}

// run carries the per-request values between stages
type run struct {
	req     Request
	variant Variant
	sm      *StateMachine
	kind    domain.FileKind
	dataset *domain.Dataset
	plans   []*sheetPlan
	output  []byte
	sheets  []string
}

// Run drives one request through the state machine. On failure the error
// carries the failing stage and no bytes are returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	r := &run{req: req, sm: NewStateMachine()}

	ctx, span := p.tracer.TraceRun(ctx, req.Variant, req.Filename)

	p.logger.InfoContext(ctx, "report run started",
		slog.String("variant", string(req.Variant)),
		slog.String("file", req.Filename),
		slog.Int("month", req.Month))

	err := p.execute(ctx, r)

	records, skipped := 0, 0
	if r.dataset != nil {
		records, skipped = r.dataset.Len(), len(r.dataset.Skipped)
	}
	p.tracer.RecordRunCompletion(ctx, span, req.Variant, records, skipped, err)

	if err != nil {
		if failErr := r.sm.Fail(err); failErr != nil {
			p.logger.ErrorContext(ctx, "state machine rejected failure", slog.String("error", failErr.Error()))
		}
		r.output = nil
		infrastructure.WithError(p.logger, err).WarnContext(ctx, "report run failed",
			slog.String("variant", string(req.Variant)),
			slog.String("state", string(domain.StateFailed)))
		return nil, err
	}

	return p.result(ctx, r), nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) error {
	if err := p.accept(r); err != nil {
		return NewStageError(domain.StateAwaitingFile, err)
	}

	stages := []struct {
		state domain.RunState
		fn    func(context.Context, *run) error
	}{
		{domain.StateValidating, p.validate},
		{domain.StateReading, p.read},
		{domain.StateAggregating, p.aggregate},
		{domain.StateRenderingCharts, p.render},
		{domain.StateWritingReport, p.write},
	}
	for _, s := range stages {
		if err := p.stage(ctx, r, s.state, s.fn); err != nil {
			return err
		}
	}
	return r.sm.Advance(domain.StateReadyForHandoff)
}

func (p *Pipeline) stage(ctx context.Context, r *run, state domain.RunState, fn func(context.Context, *run) error) error {
	if err := r.sm.Advance(state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return NewStageError(state, err)
	}

	stageCtx, span := p.tracer.TraceStage(ctx, state)
	start := time.Now()
	err := fn(stageCtx, r)
	p.tracer.RecordStageCompletion(stageCtx, span, state, time.Since(start), err)

	if err != nil {
		return NewStageError(state, err)
	}
	p.logger.DebugContext(ctx, "stage completed",
		slog.String("stage", string(state)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// accept checks the request itself and captures the month selection
func (p *Pipeline) accept(r *run) error {
	variant, ok := p.catalog.Get(r.req.Variant)
	if !ok {
		return apperrors.InvalidRequestWithError(fmt.Errorf("unknown report variant %q", r.req.Variant))
	}
	r.variant = variant

	if r.req.Input == nil {
		return apperrors.ErrMissingUpload
	}
	if len(r.req.Notifiers) > 0 {
		if err := validatePair(r.req.Notifiers); err != nil {
			return apperrors.InvalidRequestWithError(err)
		}
	}
	if r.req.Month != 0 && !variant.SupportsMonth {
		return apperrors.InvalidRequestWithError(fmt.Errorf("variant %q has no month selection", variant.ID))
	}
	if err := r.sm.SelectMonth(r.req.Month); err != nil {
		return apperrors.InvalidRequestWithError(err)
	}
	return nil
}

func validatePair(pair []string) error {
	if len(pair) != 2 {
		return fmt.Errorf("exactly two notifiers are compared, got %d", len(pair))
	}
	a, b := strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])
	if a == "" || b == "" || a == b {
		return fmt.Errorf("notifiers must be two distinct non-empty values")
	}
	return nil
}

func (p *Pipeline) validate(ctx context.Context, r *run) error {
	kind, err := p.validator.DetectKind(r.req.Filename, r.req.Input)
	if err != nil {
		return err
	}
	r.kind = kind

	if err := p.validator.Validate(r.req.Input, kind, r.variant.Requirements(kind)); err != nil {
		return err
	}
	if !r.variant.Accepts(kind) {
		return &apperrors.UnsupportedVariantError{
			Variant: string(r.variant.ID),
			Reason:  fmt.Sprintf("%s input is not supported, upload a workbook", kind),
		}
	}

	p.logger.DebugContext(ctx, "input validated",
		slog.String("kind", string(kind)),
		slog.String("variant", string(r.variant.ID)))
	return nil
}

func (p *Pipeline) read(ctx context.Context, r *run) error {
	if _, err := r.req.Input.Seek(0, io.SeekStart); err != nil {
		return apperrors.NewParsingError("failed to rewind input", err)
	}

	var sheets []string
	if r.kind == domain.FileKindWorkbook {
		sheets = r.variant.Sheets
	}
	ds, err := p.parser.Parse(r.req.Input, r.kind, sheets)
	if err != nil {
		return err
	}
	r.dataset = ds

	for _, s := range ds.Skipped {
		p.logger.WarnContext(ctx, "row skipped",
			slog.Int("line", s.Line),
			slog.String("reason", s.Reason))
	}
	p.logger.InfoContext(ctx, "input read",
		slog.Int("records", ds.Len()),
		slog.Int("skipped", len(ds.Skipped)),
		slog.Int("columns", len(ds.Columns)))
	return nil
}

func (p *Pipeline) aggregate(ctx context.Context, r *run) error {
	sel := Selection{Month: r.sm.Month()}
	if r.variant.ComparesPair {
		sel.Notifiers = p.comparisonPair(ctx, r)
	}

	plans, err := r.variant.plan(p.aggregator, r.dataset, sel)
	if err != nil {
		return err
	}
	r.plans = plans
	return nil
}

// comparisonPair resolves the pair from the request, then configuration,
// then the two most frequent notifiers in the data.
func (p *Pipeline) comparisonPair(ctx context.Context, r *run) []string {
	pair := r.req.Notifiers
	source := "request"
	if len(pair) == 0 && len(p.cfg.CompareNotifiers) == 2 {
		pair, source = p.cfg.CompareNotifiers, "config"
	}
	if len(pair) == 0 {
		pair, source = p.aggregator.TopValues(r.dataset.Records, dataprocessing.DimensionNotifier, 2), "data"
	}

	trimmed := make([]string, len(pair))
	for i, n := range pair {
		trimmed[i] = strings.TrimSpace(n)
	}
	p.logger.DebugContext(ctx, "comparison pair resolved",
		slog.Any("notifiers", trimmed),
		slog.String("source", source))
	return trimmed
}

func (p *Pipeline) render(ctx context.Context, r *run) error {
	for _, plan := range r.plans {
		for _, c := range plan.charts {
			var (
				img []byte
				err error
			)
			switch c.kind {
			case chartPie:
				img, err = p.renderer.Pie(c.counts, c.spec)
			default:
				img, err = p.renderer.Bar(c.counts, c.spec)
			}
			if err != nil {
				return err
			}
			c.image = img
		}
	}
	return nil
}

func (p *Pipeline) write(ctx context.Context, r *run) error {
	var (
		w   *exporter.WorkbookWriter
		err error
	)
	if r.variant.ExtendsInput && r.kind == domain.FileKindWorkbook {
		if _, err = r.req.Input.Seek(0, io.SeekStart); err != nil {
			return apperrors.NewStorageError("failed to rewind input", err)
		}
		w, err = exporter.OpenWorkbook(p.logger, r.req.Input)
	} else {
		w, err = exporter.NewWorkbook(p.logger)
	}
	if err != nil {
		return err
	}
	defer w.Close()

	for _, plan := range r.plans {
		if err := w.WriteTable(plan.table); err != nil {
			return err
		}
		for _, c := range plan.charts {
			if err := w.EmbedImage(plan.table.Sheet, c.anchor, c.image); err != nil {
				return err
			}
			c.image = nil
		}
	}
	if err := w.WriteBase(r.dataset); err != nil {
		return err
	}

	out, err := w.Bytes()
	if err != nil {
		return err
	}
	r.output = out
	r.sheets = w.Sheets()

	p.logger.DebugContext(ctx, "workbook written",
		slog.Int("sheets", len(r.sheets)),
		slog.Int("bytes", len(out)))
	return nil
}

func (p *Pipeline) result(ctx context.Context, r *run) *Result {
	filename := OutputFilename(r.req.OutputName, r.variant.DefaultFilename)

	totals := make(map[string]int, len(r.plans))
	tables := make([]exporter.Table, len(r.plans))
	for i, plan := range r.plans {
		totals[plan.table.Sheet] = plan.counts.GrandTotal()
		tables[i] = plan.table
	}

	res := &Result{
		Filename: filename,
		Bytes:    r.output,
		Skipped:  r.dataset.Skipped,
		Tables:   tables,
		Path:     r.sm.Path(),
		Summary: domain.ReportSummary{
			Variant:     r.variant.ID,
			Filename:    filename,
			Sheets:      r.sheets,
			Records:     r.dataset.Len(),
			GrandTotals: totals,
			Skipped:     r.dataset.Skipped,
			Bytes:       len(r.output),
		},
	}

	p.logger.InfoContext(ctx, "report ready",
		slog.String("variant", string(r.variant.ID)),
		slog.String("filename", filename),
		slog.Int("records", res.Summary.Records),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("bytes", res.Summary.Bytes))
	return res
}

// OutputFilename picks the download name: the requested name reduced to its
// base, or fallback, always ending in .xlsx.
func OutputFilename(requested, fallback string) string {
	name := strings.TrimSpace(requested)
	if name != "" {
		name = filepath.Base(filepath.Clean(name))
	}
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = fallback
	}
	if !strings.EqualFold(filepath.Ext(name), xlsxExt) {
		name += xlsxExt
	}
	return name
}

// ReadAllSeeker buffers r so it can be validated and then read again
func ReadAllSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
