package domain

import (
	"time"
)

// Location represents a tenant location owning an agent configuration and
// one or more phone numbers.
type Location struct {
	ID             string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;index"`
	Name           string    `json:"name" gorm:"type:varchar(255);not null"`
	Timezone       string    `json:"timezone" gorm:"type:varchar(64);default:'Europe/Zurich'"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Location
func (Location) TableName() string {
	return "locations"
}

// PhoneNumber maps a dialed number to a location. A number resolves either
// by its provisioned E.164 or by the customer-facing public number.
type PhoneNumber struct {
	ID                   string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LocationID           string    `json:"location_id" gorm:"type:uuid;index;not null"`
	TwilioNumberSid      string    `json:"twilio_number_sid" gorm:"type:varchar(64)"`
	E164                 string    `json:"e164" gorm:"type:varchar(32);index;not null"`
	CustomerPublicNumber *string   `json:"customer_public_number" gorm:"type:varchar(32);index"`
	Status               string    `json:"status" gorm:"type:varchar(32);default:'connected'"`
	CreatedAt            time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PhoneNumber
func (PhoneNumber) TableName() string {
	return "phone_numbers"
}
