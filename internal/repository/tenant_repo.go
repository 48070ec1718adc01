package repository

import (
	"context"
	"fmt"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"gorm.io/gorm"
)

// GormTenantRepository handles database reads for tenant data
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new tenant repository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// ResolveLocationIDByNumber maps a dialed number to a location by exact
// E.164 match or by the customer-facing public number.
func (r *GormTenantRepository) ResolveLocationIDByNumber(ctx context.Context, number string) (string, error) {
	if number == "" {
		return "", nil
	}

	var phone domain.PhoneNumber
	if err := r.db.WithContext(ctx).
		Where("e164 = ? OR customer_public_number = ?", number, number).
		Limit(1).
		First(&phone).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve phone number: %w", err)
	}
	return phone.LocationID, nil
}

// GetLocation retrieves a location by ID
func (r *GormTenantRepository) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	var location domain.Location
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &location, nil
}

// GetAgentConfig retrieves the agent config for a location
func (r *GormTenantRepository) GetAgentConfig(ctx context.Context, locationID string) (*domain.AgentConfig, error) {
	var config domain.AgentConfig
	if err := r.db.WithContext(ctx).Where("location_id = ?", locationID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent config: %w", err)
	}
	return &config, nil
}
