package domain

import (
	"time"
)

// AgentConfig is the per-location voice agent configuration used to
// bootstrap conversations. Owned and mutated by the dashboard; read-only
// within the webhook gateway.
type AgentConfig struct {
	ID         string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LocationID string `json:"location_id" gorm:"type:uuid;uniqueIndex:uni_agent_configs_location_id;not null"`

	// ElevenAgentID references the conversational agent registered with the
	// AI engine. Nil means the location has not completed agent setup.
	ElevenAgentID *string `json:"eleven_agent_id" gorm:"type:varchar(64)"`

	GreetingTemplate          *string    `json:"greeting_template" gorm:"type:text"`
	CompanyName               *string    `json:"company_name" gorm:"type:varchar(255)"`
	BookingRequiredFields     StringList `json:"booking_required_fields" gorm:"type:jsonb"`
	BookingDefaultDurationMin int        `json:"booking_default_duration_min" gorm:"default:30"`
	Services                  JSONB      `json:"services" gorm:"type:jsonb"`
	Goals                     StringList `json:"goals" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for AgentConfig
func (AgentConfig) TableName() string {
	return "agent_configs"
}
