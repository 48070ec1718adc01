package repository

import (
	"context"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"gorm.io/gorm"
)

// CallLogRepository defines call log persistence. All mutations go through
// UpsertByCallSid so at-least-once webhook delivery stays idempotent.
type CallLogRepository interface {
	// GetByCallSid returns nil, nil when no row exists.
	GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error)

	// UpsertByCallSid creates the row on first sighting of a call and
	// updates it thereafter. The apply callback mutates the row in place;
	// concurrent writers are tolerated (last write wins).
	UpsertByCallSid(ctx context.Context, callSid string, apply func(*domain.CallLog)) (*domain.CallLog, error)

	// ListRecentByLocation returns the latest call logs for a location,
	// newest first.
	ListRecentByLocation(ctx context.Context, locationID string, limit int) ([]*domain.CallLog, error)
}

// TenantRepository defines read access to tenant data (phone numbers,
// locations, agent configs). Owned and mutated by the dashboard service.
type TenantRepository interface {
	// ResolveLocationIDByNumber maps a dialed number to a location, matching
	// either the provisioned E.164 or the customer-facing public number.
	// Returns "" with no error when nothing matches.
	ResolveLocationIDByNumber(ctx context.Context, number string) (string, error)

	// GetLocation returns nil, nil when the location does not exist.
	GetLocation(ctx context.Context, id string) (*domain.Location, error)

	// GetAgentConfig returns nil, nil when the location has no agent config.
	GetAgentConfig(ctx context.Context, locationID string) (*domain.AgentConfig, error)
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	CallLog() CallLogRepository
	Tenant() TenantRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db          *gorm.DB
	callLogRepo *GormCallLogRepository
	tenantRepo  *GormTenantRepository
}

// NewRepositoryManager connects to the database from environment
// configuration, runs migrations, and returns a manager.
func NewRepositoryManager() (*GormRepositoryManager, error) {
	db, err := NewDatabaseConnection(LoadDatabaseConfigFromEnv())
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return NewGormRepositoryManager(db), nil
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:          db,
		callLogRepo: NewGormCallLogRepository(db),
		tenantRepo:  NewGormTenantRepository(db),
	}
}

// CallLog returns the call log repository
func (m *GormRepositoryManager) CallLog() CallLogRepository {
	return m.callLogRepo
}

// Tenant returns the tenant repository
func (m *GormRepositoryManager) Tenant() TenantRepository {
	return m.tenantRepo
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
