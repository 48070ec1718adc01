package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/internal/twilio"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

// persistTimeout bounds the detached persistence task; the HTTP response
// has long been sent by then.
const persistTimeout = 30 * time.Second

// StatusCallbackHandler acknowledges provider status pings immediately and
// persists call state afterwards. Twilio enforces a short response budget
// on status webhooks, so the 204 always precedes any data-store work.
type StatusCallbackHandler struct {
	tenants  repository.TenantRepository
	callLogs repository.CallLogRepository

	// dispatch runs the detached persistence task. Overridable in tests to
	// make the response-before-persistence ordering observable.
	dispatch func(task func())
}

// NewStatusCallbackHandler creates the status callback handler.
func NewStatusCallbackHandler(tenants repository.TenantRepository, callLogs repository.CallLogRepository) *StatusCallbackHandler {
	return &StatusCallbackHandler{
		tenants:  tenants,
		callLogs: callLogs,
		dispatch: func(task func()) { go task() },
	}
}

// HandleStatusCallback handles POST /api/twilio/voice/status. It responds
// 204 with an empty body before any persistence begins.
func (h *StatusCallbackHandler) HandleStatusCallback(w http.ResponseWriter, r *http.Request) {
	form := twilio.ParseStatusCallbackForm(r)

	w.WriteHeader(http.StatusNoContent)

	if form.CallSid == "" {
		logger.Base().Warn("status callback without CallSid, nothing to persist")
		return
	}

	h.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		h.persistStatus(ctx, form)
	})
}

// persistStatus is the detached persistence task. Every error in here is
// logged and swallowed: the HTTP response is already on the wire and the
// process must not crash over a logging row.
func (h *StatusCallbackHandler) persistStatus(ctx context.Context, form twilio.StatusCallbackForm) {
	// Attribution number depends on direction: the tenant owns the callee
	// number on inbound calls and the caller number on outbound calls.
	number := form.To
	direction := domain.CallDirectionInbound
	if form.IsOutbound() {
		number = form.From
		direction = domain.CallDirectionOutbound
	}

	locationID, err := h.tenants.ResolveLocationIDByNumber(ctx, number)
	if err != nil {
		logger.Base().Error("status callback tenant resolution failed",
			zap.String("call_sid", form.CallSid),
			zap.String("number", number),
			zap.Error(err))
		return
	}
	if locationID == "" {
		// Cannot attribute the row to a tenant; drop silently.
		return
	}

	now := time.Now()
	_, err = h.callLogs.UpsertByCallSid(ctx, form.CallSid, func(row *domain.CallLog) {
		if row.LocationID == "" {
			row.LocationID = locationID
		}
		if row.Direction == "" {
			row.Direction = direction
		}
		if row.FromE164 == nil && form.From != "" {
			from := form.From
			row.FromE164 = &from
		}
		if row.ToE164 == nil && form.To != "" {
			to := form.To
			row.ToE164 = &to
		}

		row.Outcome = form.CallStatus
		row.AppendStatusSnapshot(form.CallStatus, now, form.DurationSec)

		if form.CallStatus == domain.CallStatusCompleted && form.DurationSec != nil {
			row.DurationSec = form.DurationSec
			endedAt := now
			row.EndedAt = &endedAt
		} else if domain.IsTerminalCallStatus(form.CallStatus) {
			endedAt := now
			row.EndedAt = &endedAt
		}
	})
	if err != nil {
		logger.Base().Error("failed to persist call status",
			zap.String("call_sid", form.CallSid),
			zap.String("status", form.CallStatus),
			zap.String("location_id", locationID),
			zap.Error(err))
	}
}
