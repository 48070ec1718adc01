package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

const registerCallPath = "/v1/convai/twilio/register-call"

// DefaultRegisterCallTimeout bounds the registration request so a hung
// upstream cannot hang the webhook response.
const DefaultRegisterCallTimeout = 10 * time.Second

// RegisterCallRequest registers an incoming phone call with the
// conversational engine. The bootstrap payload travels nested under the
// client-data key.
type RegisterCallRequest struct {
	AgentID    string `json:"agent_id"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	Direction  string `json:"direction"`

	ConversationInitiationClientData *InitData `json:"conversation_initiation_client_data,omitempty"`
}

// CostMetadata is usage/cost information reported through response headers
// (x-character-count, request-id). Capture is best-effort.
type CostMetadata struct {
	CharacterCount *int
	RequestID      string
}

// Client talks to the ElevenLabs conversational API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates an API client. An empty apiKey yields an unconfigured
// client; callers must check Configured before registering calls.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	if timeout <= 0 {
		timeout = DefaultRegisterCallTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// RegisterCall registers the call and returns the provider's call-control
// markup verbatim, plus any cost metadata from response headers. The
// request is bounded by the client timeout.
func (c *Client) RegisterCall(ctx context.Context, req RegisterCallRequest) (string, CostMetadata, error) {
	if !c.Configured() {
		return "", CostMetadata{}, fmt.Errorf("elevenlabs api key not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", CostMetadata{}, fmt.Errorf("failed to encode register-call request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+registerCallPath, bytes.NewReader(body))
	if err != nil {
		return "", CostMetadata{}, fmt.Errorf("failed to create register-call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", CostMetadata{}, fmt.Errorf("register-call request failed: %w", err)
	}
	defer resp.Body.Close()

	cost := extractCostMetadata(resp)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cost, fmt.Errorf("failed to read register-call response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", cost, fmt.Errorf("register-call returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return string(respBody), cost, nil
}

// extractCostMetadata reads usage headers from a register-call response.
// Missing headers are normal on some deployments; log only when present.
func extractCostMetadata(resp *http.Response) CostMetadata {
	cost := CostMetadata{
		RequestID: resp.Header.Get("request-id"),
	}

	if raw := resp.Header.Get("x-character-count"); raw != "" {
		if count, err := strconv.Atoi(raw); err == nil {
			cost.CharacterCount = &count
		}
	}

	if cost.CharacterCount != nil {
		logger.Base().Info("elevenlabs cost tracked",
			zap.Int("character_count", *cost.CharacterCount),
			zap.String("request_id", cost.RequestID))
	}
	return cost
}
