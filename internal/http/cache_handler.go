package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/campus-spots/internal/cache"
)

type cacheService interface {
	Refresh(ctx context.Context) error
	UpdateTermsCache(ctx context.Context) error
	ClearCache(ctx context.Context) error
}

type CacheHandler struct {
	service   cacheService
	responder responder
	logger    *slog.Logger
}

func NewCacheHandler(service cacheService, logger *slog.Logger) *CacheHandler {
	base := defaultLogger(logger)
	return &CacheHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CacheHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CacheHandler", operation, attrs...)
}

// Refresh triggers a full synchronization: terms first, then the building
// listing merge.
func (h *CacheHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Refresh")

	if err := h.service.UpdateTermsCache(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "term refresh failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := h.service.Refresh(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "building refresh failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "refresh complete")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ClearCache drops every cached building. A failure is reported to the
// caller so the client can fall back to remote-only reads.
func (h *CacheHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ClearCache")

	if err := h.service.ClearCache(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "cache clear failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "cache cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
