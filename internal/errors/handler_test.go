package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecomp/internal/dataprocessing"
	"pricecomp/internal/exporter"
	"pricecomp/internal/session"
	"pricecomp/internal/shared/testutil"
	"pricecomp/internal/validation"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "context deadline exceeded",
			err:        fmt.Errorf("run: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "format error",
			err:        &dataprocessing.FormatError{Filename: "bad.xlsx", Reason: "corrupt spreadsheet"},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInputUnparsable,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "bad.xlsx", body["filename"])
			},
		},
		{
			name:       "schema error lists every missing column",
			err:        fmt.Errorf("derive: %w", &dataprocessing.SchemaError{Stage: "derive", Missing: []string{"Comp Link", "SKU Config"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingColumns,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, []interface{}{"Comp Link", "SKU Config"}, body["missing_columns"])
				assert.Equal(t, "derive", body["stage"])
			},
		},
		{
			name:       "no matching rows",
			err:        dataprocessing.ErrNoMatchingRows,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeNoMatchingRows,
		},
		{
			name:       "partner export failure",
			err:        &exporter.ExportError{PartnerID: "p7", Label: "Acme", File: "Acme_PriceComp.xlsx", Err: os.ErrPermission},
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeExportFailed,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "p7", body["partner_id"])
				assert.Equal(t, "Acme_PriceComp.xlsx", body["file"])
			},
		},
		{
			name:       "summary export failure has no partner",
			err:        &exporter.ExportError{File: exporter.SummaryFileName, Err: os.ErrPermission},
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeExportFailed,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.NotContains(t, body, "partner_id")
			},
		},
		{
			name:       "run in progress",
			err:        session.ErrRunInProgress,
			wantStatus: http.StatusConflict,
			wantType:   TypeRunInProgress,
		},
		{
			name:       "unsupported upload",
			err:        fmt.Errorf("notes.txt: %w", validation.ErrUnsupportedFile),
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeUnsupportedFile,
		},
		{
			name:       "empty upload",
			err:        fmt.Errorf("x.csv: %w", validation.ErrEmptyFile),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 1024},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(1024), body["limit_bytes"])
				assert.Equal(t, ErrPayloadTooLarge.ErrorCode, body["error_code"])
			},
		},
		{
			name:       "api error",
			err:        ErrNoRunInSession,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "NO_RUN", body["error_code"])
			},
		},
		{
			name:       "unknown error hides detail",
			err:        fmt.Errorf("disk exploded"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.NotContains(t, body["detail"], "disk exploded")
				assert.Equal(t, ErrInternalServer.ErrorCode, body["error_code"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/pricecomp/runs", nil)
			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/pricecomp/runs", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.NotContains(t, body, "stack")
			if tt.check != nil {
				tt.check(t, body)
			}
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, w.Body.Len())
}

func TestErrorHandler_StackOnServerErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
	assert.Contains(t, decodeProblem(t, w), "stack")

	w = httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), dataprocessing.ErrNoMatchingRows)
	assert.NotContains(t, decodeProblem(t, w), "stack", "client errors carry no stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, ErrInternalServer.ErrorCode, body["error_code"])
	assert.NotContains(t, body, "panic")
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(nil, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	notFound := decodeProblem(t, w)
	assert.Equal(t, TypeNotFound, notFound["type"])
	assert.Equal(t, ErrNotFound.ErrorCode, notFound["error_code"])
	assert.Equal(t, ErrNotFound.Message, notFound["detail"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}
