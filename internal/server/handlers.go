package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relgate/relgate/internal/event"
	"github.com/relgate/relgate/internal/storage"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook receives host webhook deliveries. Verified, decodable
// deliveries start a pipeline run in the background; the delivery is
// acknowledged immediately so the host does not time out waiting on
// collaborator work.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	sig := r.Header.Get("X-Hub-Signature-256")
	if err := event.VerifySignature(s.cfg.WebhookSecret, sig, body); err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	eventName := r.Header.Get("X-GitHub-Event")
	trig, err := event.DecodeWebhook(eventName, body)
	if err != nil {
		if errors.Is(err, event.ErrUnsupportedEvent) {
			// Hosts deliver event types we never subscribe to (ping,
			// installation). Acknowledge without starting a run.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": eventName})
			return
		}
		AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	if trig.Type == event.TypeReview && trig.Review.Action != "submitted" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": eventName})
		return
	}

	params := event.Normalize(trig, s.cfg.Defaults)
	AddLogField(r.Context(), "event_type", string(params.EventType))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()
		s.runner.Run(ctx, params)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"event":  string(params.EventType),
	})
}

// handleDispatch starts a manual run from explicit operator inputs and
// waits for the verdict. The run is detached from the request context so
// the per-request timeout and client disconnects cannot abandon a run
// that has already started collaborator work.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var inputs event.DispatchInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&inputs); err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, "malformed dispatch inputs")
		return
	}

	trig := event.Trigger{Type: event.TypeDispatch, Dispatch: &inputs}
	params := event.Normalize(trig, s.cfg.Defaults)
	AddLogField(r.Context(), "event_type", string(params.EventType))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.RunTimeout)
	defer cancel()

	run := s.runner.Run(ctx, params)
	AddLogField(r.Context(), "run_id", run.ID)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
