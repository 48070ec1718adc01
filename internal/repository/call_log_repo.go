package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCallLogRepository handles database operations for call logs
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new call log repository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// GetByCallSid retrieves a call log by provider call identifier
func (r *GormCallLogRepository) GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error) {
	var row domain.CallLog
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSid).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call log: %w", err)
	}
	return &row, nil
}

// UpsertByCallSid creates the row on first sighting and updates it
// thereafter. If a concurrent writer creates the row between the read and
// the insert, the unique constraint on call_sid fires and the write is
// retried as an update.
func (r *GormCallLogRepository) UpsertByCallSid(ctx context.Context, callSid string, apply func(*domain.CallLog)) (*domain.CallLog, error) {
	if callSid == "" {
		return nil, fmt.Errorf("call sid cannot be empty")
	}

	existing, err := r.GetByCallSid(ctx, callSid)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		apply(existing)
		if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update call log: %w", err)
		}
		return existing, nil
	}

	row := &domain.CallLog{
		ID:        uuid.New().String(),
		CallSid:   callSid,
		StartedAt: time.Now(),
	}
	apply(row)

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		// Lost the insert race; the row exists now, so update it instead.
		retry, getErr := r.GetByCallSid(ctx, callSid)
		if getErr != nil || retry == nil {
			return nil, fmt.Errorf("failed to create call log: %w", err)
		}
		apply(retry)
		if saveErr := r.db.WithContext(ctx).Save(retry).Error; saveErr != nil {
			return nil, fmt.Errorf("failed to update call log after insert race: %w", saveErr)
		}
		return retry, nil
	}
	return row, nil
}

// ListRecentByLocation returns the latest call logs for a location, newest first
func (r *GormCallLogRepository) ListRecentByLocation(ctx context.Context, locationID string, limit int) ([]*domain.CallLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []*domain.CallLog
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list call logs: %w", err)
	}
	return rows, nil
}
