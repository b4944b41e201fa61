package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/mutate"
	"github.com/stackgen-cli/compose-edit/internal/snapshot"
	"github.com/stackgen-cli/compose-edit/internal/stack"
)

// Stacks is the backend the handlers serve
type Stacks interface {
	Stacks(server string) ([]string, error)
	Fetch(ctx context.Context, ref models.StackRef) (*models.RawCompose, error)
	Update(ctx context.Context, ref models.StackRef, req models.UpdateRequest) (*models.UpdateResponse, error)
	Snapshots(ref models.StackRef) (*snapshot.Manager, error)
}

// Handler serves the v1 API
type Handler struct {
	stacks Stacks
	logger *slog.Logger
}

// NewHandler creates a handler over a stack backend
func NewHandler(stacks Stacks, opts ...Option) *Handler {
	h := &Handler{stacks: stacks, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, "ok", nil)
}

// ListStacks returns the stack names of a server
func (h *Handler) ListStacks(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	stacks, err := h.stacks.Stacks(server)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if stacks == nil {
		stacks = []string{}
	}
	respondSuccess(w, http.StatusOK, "", stacks)
}

// GetCompose returns the raw compose document of a stack
func (h *Handler) GetCompose(w http.ResponseWriter, r *http.Request) {
	raw, err := h.stacks.Fetch(r.Context(), stackRef(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "", raw)
}

// UpdateCompose applies or previews a change-set
func (h *Handler) UpdateCompose(w http.ResponseWriter, r *http.Request) {
	ref := stackRef(r)

	// decode request
	var req models.UpdateRequest
	if err := decodeRequestBody(r, &req); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	resp, err := h.stacks.Update(r.Context(), ref, req)
	if err != nil {
		updateTotal.WithLabelValues(updateMode(req.Preview), "error").Inc()
		h.fail(w, r, err)
		return
	}
	updateTotal.WithLabelValues(updateMode(req.Preview), "success").Inc()

	h.logger.Info("change-set accepted",
		"stack", ref.String(),
		"preview", req.Preview,
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondSuccess(w, http.StatusOK, resp.Message, resp)
}

// ListSnapshots returns the snapshots of a stack without their content
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.stacks.Snapshots(stackRef(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := snaps.List()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]snapshotInfo, 0, len(list))
	for _, s := range list {
		out = append(out, snapshotInfo{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			Source:    filepath.Base(s.Source),
			Message:   s.Message,
		})
	}
	respondSuccess(w, http.StatusOK, "", out)
}

type snapshotInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Message   string    `json:"message,omitempty"`
}

func stackRef(r *http.Request) models.StackRef {
	return models.StackRef{
		Server: chi.URLParam(r, "server"),
		Stack:  chi.URLParam(r, "stack"),
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	respondFail(w, code, err.Error())
}

// statusCode maps backend errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, mutate.ErrInvalid), errors.Is(err, stack.ErrInvalidStack):
		return http.StatusBadRequest
	case errors.Is(err, mutate.ErrNotFound), errors.Is(err, stack.ErrStackNotFound),
		errors.Is(err, stack.ErrUnknownServer), errors.Is(err, snapshot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mutate.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
