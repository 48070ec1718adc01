package twilio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackTwiML_AllReasons(t *testing.T) {
	for _, reason := range []FallbackReason{FallbackNoRoute, FallbackUnavailable, FallbackError} {
		doc := FallbackTwiML(reason)
		assert.Contains(t, doc, "<Response>", "reason %s", reason)
		assert.Contains(t, doc, "<Say", "reason %s", reason)
		assert.Contains(t, doc, "<Hangup", "reason %s", reason)
		assert.Contains(t, doc, `voice="alice"`, "reason %s", reason)
		assert.Contains(t, doc, "Grüezi", "reason %s", reason)
	}
}

func TestFallbackTwiML_ReasonVariesMessage(t *testing.T) {
	noRoute := FallbackTwiML(FallbackNoRoute)
	unavailable := FallbackTwiML(FallbackUnavailable)
	assert.NotEqual(t, noRoute, unavailable)
}

func TestFallbackTwiML_UnknownReasonUsesErrorMessage(t *testing.T) {
	assert.Equal(t, FallbackTwiML(FallbackError), FallbackTwiML(FallbackReason("bogus")))
}

func TestIsVoiceResponse(t *testing.T) {
	assert.True(t, IsVoiceResponse(`<?xml version="1.0"?><Response><Connect/></Response>`))
	assert.True(t, IsVoiceResponse(`<Response></Response>`))
	assert.False(t, IsVoiceResponse(`{"error":"not xml"}`))
	assert.False(t, IsVoiceResponse(""))
}
