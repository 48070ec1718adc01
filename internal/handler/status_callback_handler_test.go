package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/twilio/voice/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// syncStatusHandler runs persistence inline so tests can assert on the
// store immediately after ServeHTTP returns.
func syncStatusHandler(tenants *fakeTenantRepo, callLogs *fakeCallLogStore) *StatusCallbackHandler {
	h := NewStatusCallbackHandler(tenants, callLogs)
	h.dispatch = func(task func()) { task() }
	return h
}

func TestHandleStatusCallback_ResponsePrecedesPersistence(t *testing.T) {
	tenants := routedTenantRepo()
	callLogs := newFakeCallLogStore()

	h := NewStatusCallbackHandler(tenants, callLogs)

	var deferred []func()
	h.dispatch = func(task func()) { deferred = append(deferred, task) }

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
		"To":         {"+41440000000"},
	}))

	// The 204 is already written while the persistence task is still queued.
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, callLogs.count())
	require.Len(t, deferred, 1)

	deferred[0]()
	assert.Equal(t, 1, callLogs.count())
}

func TestHandleStatusCallback_CompletedWithDuration(t *testing.T) {
	tenants := routedTenantRepo()
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(tenants, callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"Direction":    {"inbound"},
		"From":         {"+41790000000"},
		"To":           {"+41440000000"},
		"CallDuration": {"42"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	row := callLogs.get("CA123")
	require.NotNil(t, row)
	assert.Equal(t, "loc-1", row.LocationID)
	assert.Equal(t, domain.CallStatusCompleted, row.Outcome)
	require.NotNil(t, row.DurationSec)
	assert.Equal(t, 42, *row.DurationSec)
	assert.NotNil(t, row.EndedAt)
}

func TestHandleStatusCallback_TerminalWithoutDuration(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(routedTenantRepo(), callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"no-answer"},
		"To":         {"+41440000000"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	row := callLogs.get("CA123")
	require.NotNil(t, row)
	assert.Equal(t, domain.CallStatusNoAnswer, row.Outcome)
	assert.Nil(t, row.DurationSec)
	assert.NotNil(t, row.EndedAt)
}

func TestHandleStatusCallback_NonTerminalKeepsCallOpen(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(routedTenantRepo(), callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"in-progress"},
		"To":         {"+41440000000"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	row := callLogs.get("CA123")
	require.NotNil(t, row)
	assert.Equal(t, domain.CallStatusInProgress, row.Outcome)
	assert.Nil(t, row.EndedAt)
}

func TestHandleStatusCallback_IdempotentDoubleDelivery(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(routedTenantRepo(), callLogs)

	form := url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"To":           {"+41440000000"},
		"CallDuration": {"42"},
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.HandleStatusCallback(rec, statusRequest(t, form))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	// At-least-once delivery converges on a single row.
	assert.Equal(t, 1, callLogs.count())
	row := callLogs.get("CA123")
	require.NotNil(t, row.DurationSec)
	assert.Equal(t, 42, *row.DurationSec)
}

func TestHandleStatusCallback_OutboundAttributesByFrom(t *testing.T) {
	// Outbound calls belong to the tenant that owns the caller number.
	tenants := &fakeTenantRepo{numbers: map[string]string{"+41440000000": "loc-1"}}
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(tenants, callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA777"},
		"CallStatus": {"completed"},
		"Direction":  {"outbound-api"},
		"From":       {"+41440000000"},
		"To":         {"+41790000000"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	row := callLogs.get("CA777")
	require.NotNil(t, row)
	assert.Equal(t, "loc-1", row.LocationID)
	assert.Equal(t, domain.CallDirectionOutbound, row.Direction)
}

func TestHandleStatusCallback_UnattributableDroppedSilently(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(&fakeTenantRepo{numbers: map[string]string{}}, callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
		"To":         {"+41999999999"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, callLogs.count())
}

func TestHandleStatusCallback_MissingCallSid(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := NewStatusCallbackHandler(routedTenantRepo(), callLogs)

	dispatched := false
	h.dispatch = func(task func()) { dispatched = true }

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{"CallStatus": {"completed"}}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, dispatched)
}

func TestHandleStatusCallback_PersistErrorSwallowed(t *testing.T) {
	callLogs := newFakeCallLogStore()
	callLogs.upsertErr = errEngineDown
	h := syncStatusHandler(routedTenantRepo(), callLogs)

	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, statusRequest(t, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
		"To":         {"+41440000000"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleStatusCallback_SnapshotHistoryAccumulates(t *testing.T) {
	callLogs := newFakeCallLogStore()
	h := syncStatusHandler(routedTenantRepo(), callLogs)

	for _, status := range []string{"ringing", "in-progress", "completed"} {
		rec := httptest.NewRecorder()
		h.HandleStatusCallback(rec, statusRequest(t, url.Values{
			"CallSid":    {"CA123"},
			"CallStatus": {status},
			"To":         {"+41440000000"},
		}))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	row := callLogs.get("CA123")
	require.NotNil(t, row)
	history, ok := row.Notes["status_history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 3)
	assert.Equal(t, "completed", row.Notes["last_status"])
}
