package domain

import (
	"time"
)

// CallDirection represents the direction of a call
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// Call status values reported by the telephony provider.
const (
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusFailed     = "failed"
	CallStatusBusy       = "busy"
	CallStatusNoAnswer   = "no-answer"
)

// IsTerminalCallStatus reports whether no further status transitions are
// expected after the given status.
func IsTerminalCallStatus(status string) bool {
	switch status {
	case CallStatusCompleted, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer:
		return true
	}
	return false
}

// CallLog is one row per provider call. CallSid is the idempotency key:
// at-least-once webhook delivery must never produce a second row.
type CallLog struct {
	ID          string        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LocationID  string        `json:"location_id" gorm:"type:uuid;index"`
	CallSid     string        `json:"call_sid" gorm:"type:varchar(64);uniqueIndex:uni_call_logs_call_sid;not null"`
	Direction   CallDirection `json:"direction" gorm:"type:varchar(16)"`
	FromE164    *string       `json:"from_e164" gorm:"type:varchar(32)"`
	ToE164      *string       `json:"to_e164" gorm:"type:varchar(32)"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at"`
	DurationSec *int          `json:"duration_sec"`
	Outcome     string        `json:"outcome" gorm:"type:varchar(32)"`
	Notes       JSONB         `json:"notes" gorm:"type:jsonb"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for CallLog
func (CallLog) TableName() string {
	return "call_logs"
}

// AppendStatusSnapshot records a timestamped status entry in the notes,
// keeping the full delivery history for analytics.
func (c *CallLog) AppendStatusSnapshot(status string, at time.Time, durationSec *int) {
	if c.Notes == nil {
		c.Notes = JSONB{}
	}

	entry := map[string]interface{}{
		"status": status,
		"at":     at.UTC().Format(time.RFC3339),
	}
	if durationSec != nil {
		entry["duration_sec"] = *durationSec
	}

	history, _ := c.Notes["status_history"].([]interface{})
	c.Notes["status_history"] = append(history, entry)
	c.Notes["last_status"] = status
}
