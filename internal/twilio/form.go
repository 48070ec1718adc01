package twilio

import (
	"net/http"
	"strconv"
	"strings"
)

// InboundCallForm captures the subset of voice webhook fields the gateway
// cares about. Twilio sends application/x-www-form-urlencoded by default.
type InboundCallForm struct {
	CallSid   string
	From      string
	To        string
	Direction string
	Caller    string
	Called    string
}

// ParseInboundCallForm extracts inbound call fields from the webhook body.
// Absent fields are tolerated: CallSid defaults to "unknown" so downstream
// logging never fails on a malformed delivery.
func ParseInboundCallForm(r *http.Request) InboundCallForm {
	_ = r.ParseForm()

	f := InboundCallForm{
		CallSid:   r.PostFormValue("CallSid"),
		From:      strings.TrimSpace(r.PostFormValue("From")),
		To:        strings.TrimSpace(r.PostFormValue("To")),
		Direction: r.PostFormValue("Direction"),
		Caller:    strings.TrimSpace(r.PostFormValue("Caller")),
		Called:    strings.TrimSpace(r.PostFormValue("Called")),
	}

	if f.CallSid == "" {
		f.CallSid = "unknown"
	}
	if f.To == "" {
		f.To = f.Called
	}
	if f.From == "" {
		f.From = f.Caller
	}
	if f.Direction == "" {
		f.Direction = "inbound"
	}
	return f
}

// StatusCallbackForm captures the fields of a call status webhook.
type StatusCallbackForm struct {
	CallSid     string
	CallStatus  string
	Direction   string
	From        string
	To          string
	DurationSec *int
}

// ParseStatusCallbackForm extracts status callback fields. CallDuration is
// optional and only present on completed calls.
func ParseStatusCallbackForm(r *http.Request) StatusCallbackForm {
	_ = r.ParseForm()

	f := StatusCallbackForm{
		CallSid:    r.PostFormValue("CallSid"),
		CallStatus: r.PostFormValue("CallStatus"),
		Direction:  r.PostFormValue("Direction"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
	}

	if raw := r.PostFormValue("CallDuration"); raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil {
			f.DurationSec = &sec
		}
	}
	return f
}

// IsOutbound reports whether the status ping belongs to an outbound call.
// Twilio uses values like "outbound-api" and "outbound-dial".
func (f StatusCallbackForm) IsOutbound() bool {
	return strings.HasPrefix(f.Direction, "outbound")
}
