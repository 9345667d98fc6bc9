package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

// DefaultMaxUploadBytes caps multipart uploads when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Uploader runs an uploaded blob through the pipeline.
type Uploader interface {
	ProcessUpload(ctx context.Context, name string, data []byte, opts pipeline.Options) []pipeline.Outcome
}

// Exporter renders stored documents as a workbook.
type Exporter interface {
	ExportDocumentsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error)
}

type DocumentHandler struct {
	uploader  Uploader
	docs      repository.DocumentRepository
	exporter  Exporter
	enrich    bool
	maxUpload int64
	logger    *slog.Logger
}

type HandlerConfig struct {
	Enrich         bool
	MaxUploadBytes int64
}

func NewDocumentHandler(u Uploader, docs repository.DocumentRepository, exp Exporter, cfg HandlerConfig, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &DocumentHandler{uploader: u, docs: docs, exporter: exp, enrich: cfg.Enrich, maxUpload: cfg.MaxUploadBytes, logger: logger}
}

func NewRouter(h *DocumentHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := mux.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(recovery(logger))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/documents", h.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/export.xlsx", h.ExportDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id:[0-9]+}", h.GetDocument).Methods(http.MethodGet)
	return r
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		h.respondError(w, r, common.NewAppError("FILE_TOO_LARGE", "file exceeds upload limit", common.ErrInvalidInput))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, r, common.NewAppError("FILE_TOO_LARGE", "file exceeds upload limit", common.ErrInvalidInput))
			return
		}
		h.respondError(w, r, common.NewAppError("INVALID_FORM", "invalid form data", common.ErrInvalidInput))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, r, common.NewAppError("NO_FILE", "no file provided", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, r, common.NewAppError("READ_FAILED", "failed to read file", err))
		return
	}
	if len(data) == 0 {
		h.respondError(w, r, common.NewAppError("EMPTY_FILE", "uploaded file is empty", common.ErrInvalidInput))
		return
	}

	opts := pipeline.Options{Enrich: h.enrich}
	if v := r.URL.Query().Get("enrich"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(w, r, common.NewAppError("INVALID_PARAM", "enrich must be a boolean", common.ErrInvalidInput))
			return
		}
		opts.Enrich = h.enrich && b
	}

	name := header.Filename
	outs := h.uploader.ProcessUpload(r.Context(), name, data, opts)
	if err := uploadFailure(name, outs); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{"outcomes": outs})
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	docs, err := h.docs.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, r, common.NewAppError("INVALID_ID", "document id must be an integer", common.ErrInvalidInput))
		return
	}
	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	b, err := h.exporter.ExportDocumentsXLSX(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func listFilterFrom(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	f := repository.ListFilter{DocumentType: q.Get("type")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, common.NewAppError("INVALID_PARAM", "limit must be a non-negative integer", common.ErrInvalidInput)
		}
		f.Limit = n
	}
	return f, nil
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	body := map[string]any{"error": err.Error()}
	if code := common.KindOf(err); code != "" {
		body["code"] = code
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("http.request.failed", "req_id", common.RequestIDFromContext(r.Context()), "status", status, "error", err)
	} else {
		h.logger.Warn("http.request.rejected", "req_id", common.RequestIDFromContext(r.Context()), "status", status, "error", err)
	}
	h.respondJSON(w, status, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger assigns a request id and logs one line per request.
func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, reqID := common.EnsureRequestID(r.Context())
			w.Header().Set("X-Request-ID", reqID)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.Info("http.request",
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func recovery(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					logger.Error("http.panic", "req_id", common.RequestIDFromContext(r.Context()), "panic", rv)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
