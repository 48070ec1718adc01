package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

// CallsHandler serves call log reads for the dashboard.
type CallsHandler struct {
	callLogs repository.CallLogRepository
}

// NewCallsHandler creates a new calls handler
func NewCallsHandler(callLogs repository.CallLogRepository) *CallsHandler {
	return &CallsHandler{callLogs: callLogs}
}

type recentCallEntry struct {
	ID          string      `json:"id"`
	CallSid     string      `json:"callSid"`
	Direction   string      `json:"direction"`
	FromE164    *string     `json:"from_e164"`
	ToE164      *string     `json:"to_e164"`
	StartedAt   string      `json:"started_at"`
	EndedAt     *string     `json:"ended_at"`
	DurationSec *int        `json:"duration_sec"`
	Outcome     string      `json:"outcome"`
	Notes       interface{} `json:"notes"`
}

// HandleRecentCalls handles GET /api/calls/recent?location_id=...&limit=N.
func (h *CallsHandler) HandleRecentCalls(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		writeJSONError(w, http.StatusBadRequest, "location_id is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.callLogs.ListRecentByLocation(r.Context(), locationID, limit)
	if err != nil {
		logger.Base().Error("failed to load recent calls",
			zap.String("location_id", locationID),
			zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to load recent calls")
		return
	}

	entries := make([]recentCallEntry, 0, len(rows))
	for _, row := range rows {
		entry := recentCallEntry{
			ID:          row.ID,
			CallSid:     row.CallSid,
			Direction:   string(row.Direction),
			FromE164:    row.FromE164,
			ToE164:      row.ToE164,
			StartedAt:   row.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			DurationSec: row.DurationSec,
			Outcome:     row.Outcome,
			Notes:       row.Notes,
		}
		if row.EndedAt != nil {
			ended := row.EndedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
			entry.EndedAt = &ended
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
