package http

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "pricecomp/internal/errors"
	"pricecomp/internal/services"
	"pricecomp/internal/session"
	"pricecomp/internal/validation"
	api "pricecomp/pkg/contracts/api/v1"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to a temporary file
const multipartMemory = 8 << 20

// RunService executes one price comp run
type RunService interface {
	Run(ctx context.Context, in services.RunInput) (*services.RunResult, error)
}

// RunStore keeps the latest run of each session
type RunStore interface {
	Begin(id string) error
	Finish(id string, result *services.RunResult)
	Latest(id string) (*services.RunResult, bool)
}

// PriceCompHandlerConfig carries the HTTP limits of the run endpoints
type PriceCompHandlerConfig struct {
	CookieName     string
	CookieTTL      time.Duration
	RunTimeout     time.Duration
	MaxUploadBytes int64
}

// PriceCompHandler handles the price comp run endpoints
type PriceCompHandler struct {
	service      RunService
	sessions     RunStore
	validator    *validation.FileValidator
	errorHandler *apierrors.ErrorHandler
	cfg          PriceCompHandlerConfig
	logger       *slog.Logger
}

// NewPriceCompHandler creates a new run handler
func NewPriceCompHandler(service RunService, sessions RunStore, validator *validation.FileValidator, errorHandler *apierrors.ErrorHandler, cfg PriceCompHandlerConfig, logger *slog.Logger) *PriceCompHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewFileValidator(logger)
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &PriceCompHandler{
		service:      service,
		sessions:     sessions,
		validator:    validator,
		errorHandler: errorHandler,
		cfg:          cfg,
		logger:       logger.With(slog.String("handler", "pricecomp")),
	}
}

// Routes returns the run routes, relative to api.RunsPath
func (h *PriceCompHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRun)
	r.Get("/latest", h.LatestRun)
	r.Get("/latest/archive", h.DownloadArchive)
	return r
}

// CreateRun handles POST /api/pricecomp/runs
func (h *PriceCompHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	sessionID := h.ensureSession(w, r)

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(api.UploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(validation.Upload{Filename: header.Filename, Size: header.Size}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.sessions.Begin(sessionID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RunTimeout)
		defer cancel()
	}

	h.logger.InfoContext(ctx, "run requested",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size))

	result, err := h.runInSession(ctx, sessionID, services.RunInput{Filename: header.Filename, Data: file})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, NewRunResponse(result))
}

// LatestRun handles GET /api/pricecomp/runs/latest
func (h *PriceCompHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	result, ok := h.latest(r)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoRunInSession)
		return
	}
	render.JSON(w, r, NewRunResponse(result))
}

// DownloadArchive handles GET /api/pricecomp/runs/latest/archive
func (h *PriceCompHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	result, ok := h.latest(r)
	if !ok || result.Archive == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoRunInSession)
		return
	}

	archive := result.Archive
	w.Header().Set("Content-Type", archive.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": archive.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Bytes)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive.Bytes); err != nil {
		h.logger.WarnContext(r.Context(), "archive download interrupted",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
	}
}

// runInSession runs the pipeline and releases the session on every path,
// including a panic. A failed run leaves the previous result in place.
func (h *PriceCompHandler) runInSession(ctx context.Context, sessionID string, in services.RunInput) (result *services.RunResult, err error) {
	defer func() {
		h.sessions.Finish(sessionID, result)
	}()
	return h.service.Run(ctx, in)
}

func (h *PriceCompHandler) latest(r *http.Request) (*services.RunResult, bool) {
	c, err := r.Cookie(h.cfg.CookieName)
	if err != nil || !session.ValidID(c.Value) {
		return nil, false
	}
	return h.sessions.Latest(c.Value)
}

// ensureSession returns the caller's session id, issuing a new cookie when
// the request carries none or a malformed one.
func (h *PriceCompHandler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil && session.ValidID(c.Value) {
		return c.Value
	}

	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.CookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// NewRunResponse converts a run result into its API contract
func NewRunResponse(result *services.RunResult) api.RunResponse {
	resp := api.RunResponse{
		SourceFilename: result.SourceFilename,
		GeneratedAt:    result.GeneratedAt,
		FilteredRows:   result.FilteredRows,
		PartnerCount:   result.PartnerCount,
		TopPartners:    make([]api.PartnerCount, 0, len(result.TopPartners)),
		Summary:        make([]api.PartnerCount, 0, len(result.Summary)),
		Warnings:       append([]string{}, result.Warnings...),
	}
	for _, row := range result.TopPartners {
		resp.TopPartners = append(resp.TopPartners, api.PartnerCount(row))
	}
	for _, row := range result.Summary {
		resp.Summary = append(resp.Summary, api.PartnerCount(row))
	}
	if result.Archive != nil {
		resp.Archive = api.ArchiveInfo{
			Filename:    result.Archive.Name,
			MIMEType:    result.Archive.MIMEType,
			SizeBytes:   len(result.Archive.Bytes),
			DownloadURL: api.LatestArchivePath,
		}
	}
	return resp
}
