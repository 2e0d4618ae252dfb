package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/tcg-scraper/internal/app"
	"github.com/maltedev/tcg-scraper/internal/models"
)

// Syncer is the part of the app service the API drives.
type Syncer interface {
	ListCardsets(ctx context.Context) ([]models.Cardset, error)
	UpdateCardsetByID(ctx context.Context, id string) (app.Result, error)
	Reset(ctx context.Context, id string) error
	UpdateAll(ctx context.Context) (app.Summary, error)
}

// OutboxStats reports the relay backlog. Nil when no outbox is in use.
type OutboxStats interface {
	Counts(ctx context.Context) (pending, deadLetter int64, err error)
}

type Handlers struct {
	syncer  Syncer
	outbox  OutboxStats
	baseCtx context.Context
	running atomic.Bool
	runs    sync.WaitGroup
	logger  *slog.Logger
}

// NewHandlers builds the handlers. Background runs started by the API are
// bound to baseCtx, not to the request.
func NewHandlers(baseCtx context.Context, syncer Syncer, outbox OutboxStats, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		syncer:  syncer,
		outbox:  outbox,
		baseCtx: baseCtx,
		logger:  logger.With("component", "api"),
	}
}

type CardsetResponse struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ResultCount int    `json:"result_count"`
	SyncState   string `json:"sync_state"`
}

type RunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok", "sync_running": h.running.Load()}
	status := http.StatusOK

	if h.outbox != nil {
		pending, deadLetter, err := h.outbox.Counts(r.Context())
		if err != nil {
			h.logger.Error("failed to read outbox counts", "error", err)
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			h.respondJSON(w, http.StatusServiceUnavailable, health)
			return
		}
		health["outbox"] = map[string]int64{"pending": pending, "dead_letter": deadLetter}
		if pending > 1000 {
			health["status"] = "warning"
			health["message"] = "high number of pending outbox events"
		}
		if deadLetter > 100 {
			health["status"] = "error"
			health["message"] = "high number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) ListCardsets(w http.ResponseWriter, r *http.Request) {
	cardsets, err := h.syncer.ListCardsets(r.Context())
	if err != nil {
		h.logger.Error("failed to list cardsets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list cardsets")
		return
	}

	resp := make([]CardsetResponse, 0, len(cardsets))
	for _, cs := range cardsets {
		resp = append(resp, CardsetResponse{
			ID:          cs.ID,
			Ref:         cs.Ref,
			Name:        cs.Name,
			URL:         cs.URL,
			ResultCount: cs.ResultCount,
			SyncState:   cs.SyncState.String(),
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// SyncCardset fetches one cardset and answers with the outcome.
func (h *Handlers) SyncCardset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cardsetID")

	result, err := h.syncer.UpdateCardsetByID(r.Context(), id)
	switch {
	case errors.Is(err, app.ErrCardsetNotFound):
		h.respondError(w, http.StatusNotFound, "cardset not found")
	case err != nil:
		h.logger.Error("cardset sync failed", "cardset_id", id, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.respondJSON(w, http.StatusOK, result)
	}
}

func (h *Handlers) ResetCardset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cardsetID")

	err := h.syncer.Reset(r.Context(), id)
	switch {
	case errors.Is(err, app.ErrCardsetNotFound):
		h.respondError(w, http.StatusNotFound, "cardset not found")
	case err != nil:
		h.logger.Error("failed to reset cardset", "cardset_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to reset cardset")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// SyncAll starts a background run over every unsynced cardset. Only one
// run is allowed at a time.
func (h *Handlers) SyncAll(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		h.respondError(w, http.StatusConflict, "a sync run is already in progress")
		return
	}

	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		defer h.running.Store(false)
		if _, err := h.syncer.UpdateAll(h.baseCtx); err != nil {
			h.logger.Error("sync run failed", "error", err)
		}
	}()

	h.respondJSON(w, http.StatusAccepted, RunResponse{
		Status:  "accepted",
		Message: "sync run started",
	})
}

// Wait blocks until background runs started by SyncAll have returned.
func (h *Handlers) Wait() {
	h.runs.Wait()
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
