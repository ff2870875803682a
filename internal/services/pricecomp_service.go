package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pricecomp/internal/config"
	"pricecomp/internal/dataprocessing"
	"pricecomp/internal/exporter"
	"pricecomp/internal/files"
	"pricecomp/internal/infrastructure"
)

// RunInput is one uploaded listings file
type RunInput struct {
	Filename string
	Data     io.Reader
}

// RunResult is the outcome of one successful pipeline run
type RunResult struct {
	SourceFilename string
	Summary        []dataprocessing.SummaryRow
	TopPartners    []dataprocessing.SummaryRow
	PartnerCount   int
	FilteredRows   int
	Archive        *exporter.Archive
	Warnings       []string
	GeneratedAt    time.Time
}

// PriceCompService runs the partner price-comparison pipeline
type PriceCompService struct {
	files   *files.Manager
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time
	logger  *slog.Logger
}

// PriceCompOption configures a PriceCompService
type PriceCompOption func(*PriceCompService)

// WithClock sets the clock used for archive names and timestamps
func WithClock(now func() time.Time) PriceCompOption {
	return func(s *PriceCompService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTelemetry sets the tracer and business metrics of the service.
// Either may be nil.
func WithTelemetry(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) PriceCompOption {
	return func(s *PriceCompService) {
		if tracer != nil {
			s.tracer = tracer
		}
		s.metrics = metrics
	}
}

// NewPriceCompService creates the pipeline service. Staging areas are created
// through fm.
func NewPriceCompService(fm *files.Manager, logger *slog.Logger, opts ...PriceCompOption) *PriceCompService {
	if logger == nil {
		logger = slog.Default()
	}
	if fm == nil {
		fm = files.NewManager("", logger)
	}
	s := &PriceCompService{
		files:  fm,
		tracer: otel.Tracer(infrastructure.ServiceName),
		now:    time.Now,
		logger: infrastructure.WithComponent(logger, "pricecomp_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the pipeline over one input file and returns the packaged
// result. The staging directory never outlives the call.
func (s *PriceCompService) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	start := s.now()
	// batch runs have no request middleware to assign one
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "pricecomp.run",
		trace.WithAttributes(attribute.String("pricecomp.filename", in.Filename)))
	defer span.End()

	logger := s.logger.With(
		slog.String("filename", in.Filename),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))
	logger.Info("price comparison run started")

	result, err := s.run(ctx, in, logger)

	outcome := classifyOutcome(err)
	stats := infrastructure.RunStats{}
	if result != nil {
		stats.RowsFiltered = result.FilteredRows
		stats.Partners = result.PartnerCount
		stats.ArchiveBytes = len(result.Archive.Bytes)
	}
	infrastructure.RecordRunMetrics(ctx, s.metrics, outcome, s.now().Sub(start), stats)
	span.SetAttributes(attribute.String("pricecomp.outcome", outcome))

	if err != nil {
		infrastructure.RecordError(ctx, err)
		level := slog.LevelError
		if outcome == infrastructure.OutcomeInvalid {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "price comparison run failed",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("price comparison run completed",
		slog.Int("filtered_rows", result.FilteredRows),
		slog.Int("partners", result.PartnerCount),
		slog.String("archive", result.Archive.Name),
		slog.Int("archive_bytes", len(result.Archive.Bytes)),
		slog.Duration("duration", s.now().Sub(start)))
	return result, nil
}

func (s *PriceCompService) run(ctx context.Context, in RunInput, logger *slog.Logger) (*RunResult, error) {
	var (
		table    *dataprocessing.Table
		filtered *dataprocessing.Table
		set      *dataprocessing.ListingSet
		summary  []dataprocessing.SummaryRow
		groups   []dataprocessing.PartnerGroup
		warnings []string
	)

	err := s.stage(ctx, "read", func(ctx context.Context) error {
		t, err := dataprocessing.ReadTable(in.Data, in.Filename)
		if err != nil {
			return err
		}
		if err := dataprocessing.RequireColumns(t, "read", dataprocessing.RequiredColumns...); err != nil {
			return err
		}
		table = t
		logger.Info("input table read",
			slog.Int("rows", t.Len()),
			slog.Int("columns", len(t.Columns())))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "filter", func(ctx context.Context) error {
		t, err := dataprocessing.FilterBuckets(table)
		if err != nil {
			return err
		}
		filtered = t
		logger.Info("rows filtered by bucket",
			slog.Int("rows_in", table.Len()),
			slog.Int("rows_kept", t.Len()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "derive", func(ctx context.Context) error {
		t, err := dataprocessing.DeriveFields(filtered)
		if err != nil {
			return err
		}
		bound, err := dataprocessing.BindListings(t)
		if err != nil {
			return err
		}
		set = bound
		if set.Unassigned > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"%d row(s) without %s were left out of every partner workbook",
				set.Unassigned, dataprocessing.ColPartnerID))
		}
		if missing := missingExportColumns(set.Columns); len(missing) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"partner workbooks omit column(s) absent from the input: %s",
				strings.Join(missing, ", ")))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "summarize", func(ctx context.Context) error {
		rows, err := dataprocessing.Summarize(set)
		if err != nil {
			return err
		}
		summary = rows
		groups = dataprocessing.Partition(set)
		logger.Info("listings partitioned",
			slog.Int("partners", len(groups)),
			slog.Int("summary_rows", len(summary)),
			slog.Int("unassigned_rows", set.Unassigned))
		return nil
	})
	if err != nil {
		return nil, err
	}

	generatedAt := s.now()
	var archive *exporter.Archive
	err = s.stage(ctx, "export", func(ctx context.Context) error {
		a, err := s.export(ctx, summary, groups, set.Columns, generatedAt, logger)
		if err != nil {
			return err
		}
		archive = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RunResult{
		SourceFilename: in.Filename,
		Summary:        summary,
		TopPartners:    dataprocessing.TopPartners(summary, config.TopPartnersLimit),
		PartnerCount:   len(groups),
		FilteredRows:   filtered.Len(),
		Archive:        archive,
		Warnings:       warnings,
		GeneratedAt:    generatedAt,
	}, nil
}

// export writes every workbook into a fresh staging area and packages them.
// The staging area is removed on every path.
func (s *PriceCompService) export(ctx context.Context, summary []dataprocessing.SummaryRow, groups []dataprocessing.PartnerGroup, columns []string, at time.Time, logger *slog.Logger) (*exporter.Archive, error) {
	staging, err := s.files.NewStagingArea(config.StagingPrefix)
	if err != nil {
		return nil, err
	}
	defer staging.Close()

	exp := exporter.NewWorkbookExporter(staging.Dir(), logger)
	if _, err := exp.WriteSummary(summary); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := exp.WritePartner(g, columns); err != nil {
			logger.Error("partner export failed",
				slog.String("partner_id", g.ID),
				slog.String("partner_name", g.DisplayName),
				slog.String("error", err.Error()))
			return nil, err
		}
	}

	archive, err := exporter.BuildArchive(exporter.ArchiveName(at), exp.Files(), at)
	if err != nil {
		return nil, fmt.Errorf("failed to package workbooks: %w", err)
	}
	return archive, nil
}

// stage runs fn inside a child span named after the stage. A cancelled
// context stops the pipeline before the stage starts.
func (s *PriceCompService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "pricecomp."+name)
	defer span.End()

	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err, trace.WithAttributes(attribute.String("pricecomp.stage", name)))
	}
	return err
}

// classifyOutcome maps a run error onto the outcome label of the run metrics
func classifyOutcome(err error) string {
	if err == nil {
		return infrastructure.OutcomeSuccess
	}
	var (
		formatErr *dataprocessing.FormatError
		schemaErr *dataprocessing.SchemaError
	)
	switch {
	case errors.As(err, &formatErr), errors.As(err, &schemaErr),
		errors.Is(err, dataprocessing.ErrNoMatchingRows):
		return infrastructure.OutcomeInvalid
	default:
		return infrastructure.OutcomeFailed
	}
}

func missingExportColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var missing []string
	for _, c := range dataprocessing.ExportColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
