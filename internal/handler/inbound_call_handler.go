package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aidevelo/voice-gateway/internal/config"
	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/internal/elevenlabs"
	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/internal/twilio"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

// CallRegistrar registers an inbound call with the conversational engine
// and returns call-control markup.
type CallRegistrar interface {
	Configured() bool
	RegisterCall(ctx context.Context, req elevenlabs.RegisterCallRequest) (string, elevenlabs.CostMetadata, error)
}

// InboundCallHandler orchestrates one inbound call webhook: resolve tenant,
// log the call, register it with the AI engine, and always answer with
// valid TwiML. The provider disconnects the call on non-2xx, so every
// failure after signature verification degrades to an apology response
// with status 200.
type InboundCallHandler struct {
	cfg      *config.Config
	tenants  repository.TenantRepository
	callLogs repository.CallLogRepository
	engine   CallRegistrar
}

// NewInboundCallHandler creates the inbound call orchestrator.
func NewInboundCallHandler(cfg *config.Config, tenants repository.TenantRepository, callLogs repository.CallLogRepository, engine CallRegistrar) *InboundCallHandler {
	return &InboundCallHandler{
		cfg:      cfg,
		tenants:  tenants,
		callLogs: callLogs,
		engine:   engine,
	}
}

// HandleInboundCall handles POST /api/twilio/voice/inbound.
func (h *InboundCallHandler) HandleInboundCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := twilio.ParseInboundCallForm(r)

	logger.Base().Info("inbound call webhook",
		zap.String("call_sid", form.CallSid),
		zap.String("from", form.From),
		zap.String("to", form.To))

	// Best-effort: resolve the tenant and log the ringing call before any
	// markup decision. Neither step may break call setup.
	locationID, err := h.tenants.ResolveLocationIDByNumber(ctx, form.To)
	if err != nil {
		logger.Base().Warn("tenant resolution failed",
			zap.String("call_sid", form.CallSid),
			zap.String("to", form.To),
			zap.Error(err))
		locationID = ""
	}
	h.logRingingCall(ctx, form, locationID)

	if h.cfg.MockMode {
		logger.Base().Info("mock mode active, returning canned TwiML", zap.String("call_sid", form.CallSid))
		respondTwiML(w, twilio.MockCallTwiML)
		return
	}

	if locationID == "" {
		logger.Base().Warn("no tenant for dialed number",
			zap.String("call_sid", form.CallSid),
			zap.String("to", form.To))
		respondTwiML(w, twilio.FallbackTwiML(twilio.FallbackNoRoute))
		return
	}

	if !h.engine.Configured() {
		logger.Base().Error("elevenlabs api key not configured",
			zap.String("call_sid", form.CallSid),
			zap.String("location_id", locationID))
		respondTwiML(w, twilio.FallbackTwiML(twilio.FallbackUnavailable))
		return
	}

	markup, err := h.registerCall(ctx, form, locationID)
	if err != nil {
		logger.Base().Error("inbound call registration failed",
			zap.String("call_sid", form.CallSid),
			zap.String("location_id", locationID),
			zap.Error(err))
		respondTwiML(w, twilio.FallbackTwiML(twilio.FallbackError))
		return
	}

	respondTwiML(w, markup)
}

// registerCall loads the tenant context, builds the bootstrap payload, and
// registers the call with the conversational engine. Any error here is
// absorbed into the fallback path by the caller.
func (h *InboundCallHandler) registerCall(ctx context.Context, form twilio.InboundCallForm, locationID string) (string, error) {
	callCtx := elevenlabs.CallContext{
		From:    form.From,
		To:      form.To,
		CallSid: form.CallSid,
	}

	agentCtx, err := elevenlabs.LoadAgentContext(ctx, h.tenants, locationID, callCtx)
	if err != nil {
		return "", err
	}

	agentID := h.cfg.DefaultElevenAgentID
	if agentCtx.AgentConfig.ElevenAgentID != nil && *agentCtx.AgentConfig.ElevenAgentID != "" {
		agentID = *agentCtx.AgentConfig.ElevenAgentID
	}
	if agentID == "" {
		return "", errNoAgentConfigured(locationID)
	}

	initData := elevenlabs.BuildInitData(agentCtx)

	markup, cost, err := h.engine.RegisterCall(ctx, elevenlabs.RegisterCallRequest{
		AgentID:                          agentID,
		FromNumber:                       form.From,
		ToNumber:                         form.To,
		Direction:                        string(domain.CallDirectionInbound),
		ConversationInitiationClientData: &initData,
	})
	if err != nil {
		return "", err
	}

	h.attachCostMetadata(ctx, form.CallSid, cost)

	if !twilio.IsVoiceResponse(markup) {
		return "", errMalformedMarkup(markup)
	}
	return markup, nil
}

// logRingingCall upserts the call log with status ringing. Failures are
// logged and swallowed: a logging problem must never break call setup.
func (h *InboundCallHandler) logRingingCall(ctx context.Context, form twilio.InboundCallForm, locationID string) {
	_, err := h.callLogs.UpsertByCallSid(ctx, form.CallSid, func(row *domain.CallLog) {
		if row.LocationID == "" {
			row.LocationID = locationID
		}
		row.Direction = domain.CallDirectionInbound
		if form.From != "" {
			from := form.From
			row.FromE164 = &from
		}
		if form.To != "" {
			to := form.To
			row.ToE164 = &to
		}
		if row.Outcome == "" {
			row.Outcome = domain.CallStatusRinging
		}
		row.AppendStatusSnapshot(domain.CallStatusRinging, time.Now(), nil)
	})
	if err != nil {
		logger.Base().Warn("failed to log ringing call",
			zap.String("call_sid", form.CallSid),
			zap.Error(err))
	}
}

// attachCostMetadata records registration cost headers into the call log
// notes. Best-effort, non-fatal.
func (h *InboundCallHandler) attachCostMetadata(ctx context.Context, callSid string, cost elevenlabs.CostMetadata) {
	if cost.CharacterCount == nil && cost.RequestID == "" {
		return
	}

	_, err := h.callLogs.UpsertByCallSid(ctx, callSid, func(row *domain.CallLog) {
		if row.Notes == nil {
			row.Notes = domain.JSONB{}
		}
		meta := map[string]interface{}{}
		if cost.CharacterCount != nil {
			meta["character_count"] = *cost.CharacterCount
		}
		if cost.RequestID != "" {
			meta["request_id"] = cost.RequestID
		}
		row.Notes["elevenlabs"] = meta
	})
	if err != nil {
		logger.Base().Warn("failed to attach cost metadata",
			zap.String("call_sid", callSid),
			zap.Error(err))
	}
}

// respondTwiML writes call-control markup with status 200. The markup is
// passed through verbatim, never re-serialized.
func respondTwiML(w http.ResponseWriter, markup string) {
	w.Header().Set("Content-Type", twilio.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}
