package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/yhilem/distill"
	"github.com/yhilem/distill/mimetype"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 100 << 20

type handler struct {
	pipeline *distill.Pipeline
	cfg      *distill.Config
}

func newHandler(p *distill.Pipeline, cfg *distill.Config) *handler {
	return &handler{pipeline: p, cfg: cfg}
}

// requestConfig layers a per-request config (the multipart "config"
// field, JSON) over the server default.
func (h *handler) requestConfig(form *multipart.Form) (*distill.Config, error) {
	if form == nil || len(form.Value["config"]) == 0 {
		return h.cfg, nil
	}
	cfg := *h.cfg
	if err := json.Unmarshal([]byte(form.Value["config"][0]), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config field: %w", err)
	}
	return &cfg, nil
}

// readUpload loads one uploaded file into memory and resolves a media
// type hint from its filename.
func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("reading upload %s: %w", fh.Filename, err)
	}
	return content, mimetype.FromExtension(filepath.Ext(fh.Filename)), nil
}

// POST /extract
// Accepts a multipart upload ("file", optional "config" JSON field) or a
// raw body with its Content-Type as the media type hint.
func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var (
		content []byte
		hint    string
		cfg     = h.cfg
	)

	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		fhs := r.MultipartForm.File["file"]
		if len(fhs) == 0 {
			writeError(w, http.StatusBadRequest, "multipart request needs a 'file' part")
			return
		}
		var err error
		content, hint, err = readUpload(fhs[0])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			slog.Error("reading upload", "request_id", requestID(ctx), "error", err)
			return
		}
		cfg, err = h.requestConfig(r.MultipartForm)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading request body failed")
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusBadRequest, "empty request body")
			return
		}
		content = body
		if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
			hint = ct
		}
	}

	result, err := h.pipeline.ExtractBytes(ctx, content, hint, cfg)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		slog.Error("extract error", "request_id", requestID(ctx), "error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /batch
// Accepts a multipart upload with repeated "files" parts and an optional
// "config" JSON field. Results come back in upload order; failed items
// carry an error string instead of a result.
func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart request with 'files' parts")
		return
	}
	fhs := r.MultipartForm.File["files"]
	if len(fhs) == 0 {
		writeError(w, http.StatusBadRequest, "multipart request needs at least one 'files' part")
		return
	}
	cfg, err := h.requestConfig(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs := make([][]byte, len(fhs))
	for i, fh := range fhs {
		content, _, err := readUpload(fh)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read uploads")
			slog.Error("reading upload", "request_id", requestID(ctx), "error", err)
			return
		}
		docs[i] = content
	}

	items := h.pipeline.BatchExtractBytes(ctx, docs, cfg)

	type batchEntry struct {
		Index    int             `json:"index"`
		Filename string          `json:"filename"`
		Result   *distill.Result `json:"result,omitempty"`
		Error    string          `json:"error,omitempty"`
	}
	entries := make([]batchEntry, len(items))
	for i, item := range items {
		entries[i] = batchEntry{
			Index:    item.Index,
			Filename: fhs[i].Filename,
			Result:   item.Result,
		}
		if item.Err != nil {
			entries[i].Error = item.Err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": entries,
	})
}

// GET /cache/stats
func (h *handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Cache().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read cache stats")
		slog.Error("cache stats error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DELETE /cache
func (h *handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Cache().Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		slog.Error("cache clear error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) (int, string) {
	var (
		parseErr *distill.ParsingError
		depErr   *distill.MissingDependencyError
		valErr   *distill.ValidationError
		toErr    *distill.TimeoutError
	)
	switch {
	case errors.Is(err, distill.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.As(err, &depErr):
		return http.StatusNotImplemented, err.Error()
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &toErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, err.Error()
	default:
		return http.StatusInternalServerError, "extraction failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
