package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pricecomp/internal/dataprocessing"
	"pricecomp/internal/exporter"
	"pricecomp/internal/files"
	"pricecomp/internal/infrastructure"
	"pricecomp/internal/shared/testutil"
)

var fixedNow = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

type serviceHarness struct {
	service     *PriceCompService
	stagingRoot string
	spans       *tracetest.SpanRecorder
	reader      *sdkmetric.ManualReader
	logs        *testutil.BufferedSlogHandler
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	root := filepath.Join(t.TempDir(), "staging")
	service := NewPriceCompService(
		files.NewManager(root, logger),
		logger,
		WithClock(func() time.Time { return fixedNow }),
		WithTelemetry(tp.Tracer("test"), metrics),
	)
	return &serviceHarness{service: service, stagingRoot: root, spans: spans, reader: reader, logs: handler}
}

func (h *serviceHarness) runCount(t *testing.T, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "pricecomp_runs_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("outcome")); ok && v.AsString() == outcome {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func (h *serviceHarness) assertStagingClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.stagingRoot)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "staging area must not outlive the run")
}

func archiveEntries(t *testing.T, a *exporter.Archive) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(a.Bytes), int64(len(a.Bytes)))
	require.NoError(t, err)

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = data
	}
	return entries
}

func TestPriceCompServiceRun(t *testing.T) {
	tests := []struct {
		name string
		file string
		data func(t *testing.T) []byte
	}{
		{
			name: "csv_input",
			file: "master.csv",
			data: func(t *testing.T) []byte { return testutil.ListingsCSV(t, testutil.SampleListings()...) },
		},
		{
			name: "xlsx_input",
			file: "master.xlsx",
			data: func(t *testing.T) []byte { return testutil.ListingsXLSX(t, testutil.SampleListings()...) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServiceHarness(t)

			result, err := h.service.Run(context.Background(), RunInput{
				Filename: tt.file,
				Data:     bytes.NewReader(tt.data(t)),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.file, result.SourceFilename)
			assert.Equal(t, 4, result.FilteredRows)
			assert.Equal(t, 3, result.PartnerCount)
			assert.Equal(t, fixedNow, result.GeneratedAt)
			assert.Empty(t, result.Warnings)
			assert.Equal(t, []dataprocessing.SummaryRow{
				{PartnerID: "p1", PartnerName: "Acme", SKUCount: 2},
				{PartnerID: "p2", PartnerName: "Beta", SKUCount: 1},
				{PartnerID: "p3", PartnerName: "Gamma", SKUCount: 1},
			}, result.Summary)
			assert.Equal(t, result.Summary, result.TopPartners)

			require.NotNil(t, result.Archive)
			assert.Equal(t, "Comp_05-03.zip", result.Archive.Name)
			assert.Equal(t, "application/zip", result.Archive.MIMEType)

			entries := archiveEntries(t, result.Archive)
			assert.Len(t, entries, 4)
			for _, name := range []string{
				exporter.SummaryFileName,
				"Acme_PriceComp.xlsx",
				"Beta_PriceComp.xlsx",
				"Gamma_PriceComp.xlsx",
			} {
				assert.Contains(t, entries, name)
			}

			h.assertStagingClean(t)
			assert.Equal(t, int64(1), h.runCount(t, infrastructure.OutcomeSuccess))
			testutil.AssertNoErrors(t, h.logs)
			testutil.AssertLogContains(t, h.logs, slog.LevelInfo, "price comparison run completed")
		})
	}
}

func TestPriceCompServiceRunPartnerWorkbook(t *testing.T) {
	h := newServiceHarness(t)

	result, err := h.service.Run(context.Background(), RunInput{
		Filename: "master.csv",
		Data:     bytes.NewReader(testutil.ListingsCSV(t, testutil.SampleListings()...)),
	})
	require.NoError(t, err)

	entries := archiveEntries(t, result.Archive)
	f, err := excelize.OpenReader(bytes.NewReader(entries["Acme_PriceComp.xlsx"]))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exporter.DataSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exporter.SelectColumns(append(testutil.PriceCompHeader,
		dataprocessing.ColAdjustment, dataprocessing.ColNoonLink)), rows[0])

	summary, err := f.GetRows(exporter.SummarySheetName)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"p1", "Acme", "2"}, summary[1])
}

func TestPriceCompServiceRunWarnings(t *testing.T) {
	h := newServiceHarness(t)
	listings := append(testutil.SampleListings(), testutil.ListingRow{
		SKU: "S9", Bucket: "NC", OfferPrice: "1", CompPrice: "1", SKUConfig: "N900", URL: "http://x/9",
	})

	result, err := h.service.Run(context.Background(), RunInput{
		Filename: "master.csv",
		Data:     bytes.NewReader(testutil.ListingsCSV(t, listings...)),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.FilteredRows)
	assert.Equal(t, 3, result.PartnerCount)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "1 row(s) without ID Partner")
}

func TestPriceCompServiceRunErrors(t *testing.T) {
	minimal := []string{"SKU", "ID Partner", "Partner Name", "Price Comp Bucket", "Offer Price", "Latest Comp Price All", "SKU Config"}

	tests := []struct {
		name    string
		file    string
		data    func(t *testing.T) []byte
		outcome string
		check   func(t *testing.T, err error)
	}{
		{
			name: "no_matching_rows",
			file: "master.csv",
			data: func(t *testing.T) []byte {
				return testutil.ListingsCSV(t, testutil.SampleListings()[3])
			},
			outcome: infrastructure.OutcomeInvalid,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, dataprocessing.ErrNoMatchingRows)
			},
		},
		{
			name: "missing_comp_link_column",
			file: "master.csv",
			data: func(t *testing.T) []byte {
				return testutil.CSV(t, minimal, []string{"S1", "p1", "Acme", "NC", "1", "2", "N1"})
			},
			outcome: infrastructure.OutcomeInvalid,
			check: func(t *testing.T, err error) {
				var schemaErr *dataprocessing.SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.Equal(t, []string{dataprocessing.ColCompLink}, schemaErr.Missing)
			},
		},
		{
			name: "corrupt_workbook",
			file: "master.xlsx",
			data: func(t *testing.T) []byte {
				return []byte("definitely not a zip container")
			},
			outcome: infrastructure.OutcomeInvalid,
			check: func(t *testing.T, err error) {
				var formatErr *dataprocessing.FormatError
				require.ErrorAs(t, err, &formatErr)
				assert.Equal(t, "master.xlsx", formatErr.Filename)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServiceHarness(t)

			result, err := h.service.Run(context.Background(), RunInput{
				Filename: tt.file,
				Data:     bytes.NewReader(tt.data(t)),
			})

			require.Error(t, err)
			assert.Nil(t, result)
			tt.check(t, err)
			h.assertStagingClean(t)
			assert.Equal(t, int64(1), h.runCount(t, tt.outcome))
			assert.True(t, h.logs.ContainsMessage("price comparison run failed"))
		})
	}
}

func TestPriceCompServiceRunStagingFailure(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	service := NewPriceCompService(files.NewManager(blocker, logger), logger)
	_, err := service.Run(context.Background(), RunInput{
		Filename: "master.csv",
		Data:     bytes.NewReader(testutil.ListingsCSV(t, testutil.SampleListings()...)),
	})

	require.Error(t, err)
	assert.Equal(t, infrastructure.OutcomeFailed, classifyOutcome(err))
	testutil.AssertLogContains(t, handler, slog.LevelError, "price comparison run failed")
}

func TestPriceCompServiceRunCancelled(t *testing.T) {
	h := newServiceHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.service.Run(ctx, RunInput{
		Filename: "master.csv",
		Data:     bytes.NewReader(testutil.ListingsCSV(t, testutil.SampleListings()...)),
	})

	assert.ErrorIs(t, err, context.Canceled)
	h.assertStagingClean(t)
}

func TestPriceCompServiceRunSpans(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.Run(context.Background(), RunInput{
		Filename: "master.csv",
		Data:     bytes.NewReader(testutil.ListingsCSV(t, testutil.SampleListings()...)),
	})
	require.NoError(t, err)

	var (
		names []string
		root  sdktrace.ReadOnlySpan
	)
	for _, s := range h.spans.Ended() {
		names = append(names, s.Name())
		if s.Name() == "pricecomp.run" {
			root = s
		}
	}
	assert.ElementsMatch(t, []string{
		"pricecomp.read", "pricecomp.filter", "pricecomp.derive",
		"pricecomp.summarize", "pricecomp.export", "pricecomp.run",
	}, names)

	require.NotNil(t, root)
	for _, s := range h.spans.Ended() {
		if s.Name() != "pricecomp.run" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), "stage %s", s.Name())
		}
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, infrastructure.OutcomeSuccess},
		{"format", &dataprocessing.FormatError{Filename: "x.csv", Reason: "bad"}, infrastructure.OutcomeInvalid},
		{"schema", &dataprocessing.SchemaError{Stage: "read", Missing: []string{"SKU"}}, infrastructure.OutcomeInvalid},
		{"no_rows", dataprocessing.ErrNoMatchingRows, infrastructure.OutcomeInvalid},
		{"export", &exporter.ExportError{PartnerID: "p1", File: "a.xlsx", Err: errors.New("disk full")}, infrastructure.OutcomeFailed},
		{"cancelled", context.Canceled, infrastructure.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyOutcome(tt.err))
		})
	}
}
