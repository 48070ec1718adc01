package twilio

import (
	"strings"

	"github.com/aidevelo/voice-gateway/pkg/logger"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// ContentType is the response content type for call-control markup.
const ContentType = "text/xml"

// SayVoice is the synthesized voice used for fallback prompts.
const SayVoice = "alice"

// FallbackReason categorizes why a call could not be bridged. The caller
// hears an apology and a clean hangup in every case; the category only
// varies the spoken text for operator diagnosability.
type FallbackReason string

const (
	// FallbackNoRoute means the dialed number matched no tenant.
	FallbackNoRoute FallbackReason = "no_route"
	// FallbackUnavailable means the AI engine is not configured or not set up.
	FallbackUnavailable FallbackReason = "unavailable"
	// FallbackError covers every internal failure.
	FallbackError FallbackReason = "error"
)

var fallbackMessages = map[FallbackReason]string{
	FallbackNoRoute:     "Grüezi. Diese Nummer ist derzeit keinem Assistenten zugewiesen. Bitte versuchen Sie es später erneut.",
	FallbackUnavailable: "Grüezi. Unser Sprachassistent ist im Moment leider nicht verfügbar. Bitte versuchen Sie es später erneut.",
	FallbackError:       "Grüezi. Es ist leider ein technischer Fehler aufgetreten. Bitte versuchen Sie es später erneut.",
}

// staticFallback is served if TwiML rendering itself fails; the provider
// must always receive valid markup.
const staticFallback = `<?xml version="1.0" encoding="UTF-8"?><Response><Say voice="alice">Es ist leider ein technischer Fehler aufgetreten.</Say><Hangup/></Response>`

// MockCallTwiML is returned when mock mode is active, so the webhook path
// can be exercised end to end without the AI engine.
const MockCallTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say voice="alice">This is a mock call. Mock mode is enabled.</Say><Hangup/></Response>`

// FallbackTwiML renders the apology-and-hangup response for a failure
// category.
func FallbackTwiML(reason FallbackReason) string {
	message, ok := fallbackMessages[reason]
	if !ok {
		message = fallbackMessages[FallbackError]
	}

	doc, err := twiml.Voice([]twiml.Element{
		twiml.VoiceSay{Message: message, Voice: SayVoice},
		twiml.VoiceHangup{},
	})
	if err != nil {
		logger.Base().Error("failed to render fallback TwiML", zap.Error(err))
		return staticFallback
	}
	return doc
}

// IsVoiceResponse reports whether body looks like well-formed call-control
// markup. Pass-through responses are validated with this before being
// handed back to the provider.
func IsVoiceResponse(body string) bool {
	return strings.Contains(body, "<Response")
}
