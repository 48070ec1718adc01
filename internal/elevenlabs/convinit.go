package elevenlabs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/internal/repository"
)

// DefaultCompanyName is used when neither agent config nor location
// provides a display name.
const DefaultCompanyName = "Unser Unternehmen"

// DefaultLanguage is the conversation language handed to the agent.
const DefaultLanguage = "de"

// defaultRequiredFields is the booking field set used when a tenant has not
// configured one. Order matters: the agent asks in this order.
var defaultRequiredFields = []string{"name", "phone", "service", "preferredTime", "timezone"}

const companyNamePlaceholder = "{{company_name}}"

// CallContext carries per-call metadata into the bootstrap payload.
type CallContext struct {
	From     string
	To       string
	CallSid  string
	TestMode bool
}

// AgentContext is the full tenant context needed to bootstrap a
// conversation: agent configuration plus location, loaded per call.
type AgentContext struct {
	LocationID  string
	AgentConfig domain.AgentConfig
	Location    domain.Location
	Call        CallContext
}

// DynamicVariables is the named-variable bundle handed to the agent.
// Optional fields must be omitted entirely when empty so the agent's own
// defaults are not overridden by null values.
type DynamicVariables struct {
	CompanyName        string                 `json:"company_name"`
	Greeting           string                 `json:"greeting"`
	RequiredFields     []string               `json:"required_fields"`
	Timezone           string                 `json:"timezone,omitempty"`
	BookingDurationMin int                    `json:"booking_duration_min"`
	ServiceCatalog     map[string]interface{} `json:"service_catalog,omitempty"`
	AgentGoals         []string               `json:"agent_goals,omitempty"`
	CallerNumber       string                 `json:"caller_number,omitempty"`
	CallSid            string                 `json:"call_sid,omitempty"`
	TestMode           bool                   `json:"test_mode,omitempty"`
}

// AgentOverride configures the agent's opening behavior. FirstMessage
// triggers the agent to speak immediately instead of waiting for caller
// input.
type AgentOverride struct {
	FirstMessage string `json:"first_message,omitempty"`
	Language     string `json:"language,omitempty"`
}

// ConfigOverride wraps per-conversation agent configuration overrides.
type ConfigOverride struct {
	Agent *AgentOverride `json:"agent,omitempty"`
}

// InitData is the conversation bootstrap payload. It is built fresh per
// call, sent to the AI engine, and never persisted.
type InitData struct {
	DynamicVariables           DynamicVariables `json:"dynamic_variables"`
	ConversationConfigOverride *ConfigOverride  `json:"conversation_config_override,omitempty"`
}

// BuildInitData builds the conversation bootstrap payload from tenant
// context. The greeting in DynamicVariables and in the first-message
// override must be identical: that parity is what guarantees a call behaves
// the same whether it starts from a phone call or a browser test.
func BuildInitData(agentCtx AgentContext) InitData {
	cfg := agentCtx.AgentConfig

	companyName := DefaultCompanyName
	if cfg.CompanyName != nil && *cfg.CompanyName != "" {
		companyName = *cfg.CompanyName
	} else if agentCtx.Location.Name != "" {
		companyName = agentCtx.Location.Name
	}

	greeting := fmt.Sprintf("Grüezi, hier ist %s. Wie kann ich Ihnen helfen?", companyName)
	if cfg.GreetingTemplate != nil && *cfg.GreetingTemplate != "" {
		greeting = strings.ReplaceAll(*cfg.GreetingTemplate, companyNamePlaceholder, companyName)
	}

	requiredFields := defaultRequiredFields
	if len(cfg.BookingRequiredFields) > 0 {
		requiredFields = cfg.BookingRequiredFields
	}

	durationMin := cfg.BookingDefaultDurationMin
	if durationMin <= 0 {
		durationMin = 30
	}

	vars := DynamicVariables{
		CompanyName:        companyName,
		Greeting:           greeting,
		RequiredFields:     requiredFields,
		Timezone:           agentCtx.Location.Timezone,
		BookingDurationMin: durationMin,
	}

	if len(cfg.Services) > 0 {
		vars.ServiceCatalog = cfg.Services
	}
	if len(cfg.Goals) > 0 {
		vars.AgentGoals = cfg.Goals
	}
	if agentCtx.Call.From != "" {
		vars.CallerNumber = agentCtx.Call.From
	}
	if agentCtx.Call.CallSid != "" {
		vars.CallSid = agentCtx.Call.CallSid
	}
	if agentCtx.Call.TestMode {
		vars.TestMode = true
	}

	return InitData{
		DynamicVariables: vars,
		ConversationConfigOverride: &ConfigOverride{
			Agent: &AgentOverride{
				FirstMessage: greeting,
				Language:     DefaultLanguage,
			},
		},
	}
}

// LoadAgentContext fetches the agent config and location for a resolved
// tenant. It fails loudly when either record is missing; the orchestrator
// owns the fallback decision.
func LoadAgentContext(ctx context.Context, repo repository.TenantRepository, locationID string, call CallContext) (AgentContext, error) {
	agentConfig, err := repo.GetAgentConfig(ctx, locationID)
	if err != nil {
		return AgentContext{}, fmt.Errorf("loading agent config for location %s: %w", locationID, err)
	}
	if agentConfig == nil {
		return AgentContext{}, fmt.Errorf("agent config not found for location %s", locationID)
	}

	location, err := repo.GetLocation(ctx, locationID)
	if err != nil {
		return AgentContext{}, fmt.Errorf("loading location %s: %w", locationID, err)
	}
	if location == nil {
		return AgentContext{}, fmt.Errorf("location not found: %s", locationID)
	}

	return AgentContext{
		LocationID:  locationID,
		AgentConfig: *agentConfig,
		Location:    *location,
		Call:        call,
	}, nil
}
