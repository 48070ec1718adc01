package handler

import (
	"net/http"

	"github.com/aidevelo/voice-gateway/internal/config"
	"github.com/aidevelo/voice-gateway/internal/elevenlabs"
	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/internal/twilio"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

// DevHandler exposes local debugging endpoints. It is only routed
// outside production.
type DevHandler struct {
	cfg     *config.Config
	tenants repository.TenantRepository
}

// NewDevHandler creates a new dev handler
func NewDevHandler(cfg *config.Config, tenants repository.TenantRepository) *DevHandler {
	return &DevHandler{cfg: cfg, tenants: tenants}
}

// HandleTestWebhook runs the inbound resolution pipeline against a
// submitted webhook form without contacting the conversation engine.
// Useful for checking number routing and init payloads locally.
func (h *DevHandler) HandleTestWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form := twilio.ParseInboundCallForm(r)

	result := map[string]interface{}{
		"call_sid": form.CallSid,
		"from":     form.From,
		"to":       form.To,
	}
	if h.cfg.PublicBaseURL != "" {
		result["webhook_url"] = h.cfg.PublicBaseURL + "/api/twilio/voice/inbound"
	}

	locationID, err := h.tenants.ResolveLocationIDByNumber(r.Context(), form.To)
	if err != nil {
		logger.Base().Warn("test webhook: tenant lookup failed",
			zap.String("to", form.To),
			zap.Error(err))
		result["resolution_error"] = err.Error()
	}
	result["location_id"] = locationID
	result["resolved"] = locationID != ""

	if locationID != "" {
		agentCtx, err := elevenlabs.LoadAgentContext(r.Context(), h.tenants, locationID, elevenlabs.CallContext{
			From:     form.From,
			To:       form.To,
			CallSid:  form.CallSid,
			TestMode: true,
		})
		if err != nil {
			result["context_error"] = err.Error()
		} else {
			agentID := h.cfg.DefaultElevenAgentID
			if agentCtx.AgentConfig.ElevenAgentID != nil && *agentCtx.AgentConfig.ElevenAgentID != "" {
				agentID = *agentCtx.AgentConfig.ElevenAgentID
			}
			result["agent_id"] = agentID
			result["init_data"] = elevenlabs.BuildInitData(agentCtx)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}
