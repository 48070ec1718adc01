package handler

import "fmt"

func errNoAgentConfigured(locationID string) error {
	return fmt.Errorf("no conversational agent configured for location %s and no default agent set", locationID)
}

func errMalformedMarkup(body string) error {
	preview := body
	if len(preview) > 120 {
		preview = preview[:120]
	}
	return fmt.Errorf("register-call response is not call-control markup: %q", preview)
}
