package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rehberapp/rehber-go/internal/transfer"
)

// respondTransferError writes the error envelope the transfer client
// expects: {success: false, error}.
func respondTransferError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// handleStartTransfer creates a transfer job for the selected counseling
// sessions and starts running it in the background. Progress is delivered
// over the websocket; the response only acknowledges the job.
func (s *Server) handleStartTransfer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionIDs []int64 `json:"sessionIds"`
		Filters    struct {
			OnlyUnsynced bool `json:"onlyUnsynced"`
		} `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondTransferError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(payload.SessionIDs) == 0 {
		respondTransferError(w, http.StatusBadRequest, "At least one session id is required")
		return
	}

	candidates, err := s.store.GetSessionsForTransfer(payload.SessionIDs, payload.Filters.OnlyUnsynced)
	if err != nil {
		respondTransferError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}

	items := make([]transfer.Item, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, transfer.Item{
			ID:          strconv.FormatInt(c.SessionID, 10),
			SessionID:   c.SessionID,
			StudentName: c.StudentName,
			Topic:       c.Topic,
		})
	}

	job, err := s.app.TransferRegistry().CreateJob(items)
	if err != nil {
		if errors.Is(err, transfer.ErrNoItems) {
			respondTransferError(w, http.StatusBadRequest, "No sessions eligible for transfer")
			return
		}
		respondTransferError(w, http.StatusInternalServerError, "Failed to create transfer")
		return
	}

	go s.runner.Run(context.Background(), job.ID, items, s.driverFactory())

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":       true,
		"transferId":    job.ID,
		"totalSessions": len(items),
	})
}

// handleCancelTransfer requests cooperative cancellation. The job keeps
// running until the current item finishes; the final status arrives over
// the websocket.
func (s *Server) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TransferID string `json:"transferId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TransferID == "" {
		respondTransferError(w, http.StatusBadRequest, "A transfer id is required")
		return
	}

	if _, err := s.app.TransferRegistry().RequestCancel(payload.TransferID); err != nil {
		respondTransferError(w, http.StatusNotFound, "Transfer not found")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{"success": true})
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID := chi.URLParam(r, "transferID")

	snapshot, err := s.app.TransferRegistry().Snapshot(transferID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Transfer not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, snapshot)
}
