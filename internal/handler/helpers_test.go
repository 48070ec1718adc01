package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/internal/elevenlabs"
	"github.com/google/uuid"
)

// fakeTenantRepo resolves numbers from a fixed map and serves a single
// agent config / location pair.
type fakeTenantRepo struct {
	numbers     map[string]string
	agentConfig *domain.AgentConfig
	location    *domain.Location

	resolveErr error
}

func (f *fakeTenantRepo) ResolveLocationIDByNumber(ctx context.Context, number string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.numbers[number], nil
}

func (f *fakeTenantRepo) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	if f.location != nil && f.location.ID == id {
		return f.location, nil
	}
	return nil, nil
}

func (f *fakeTenantRepo) GetAgentConfig(ctx context.Context, locationID string) (*domain.AgentConfig, error) {
	if f.agentConfig != nil && f.agentConfig.LocationID == locationID {
		return f.agentConfig, nil
	}
	return nil, nil
}

// fakeCallLogStore is an in-memory CallLogRepository keyed by CallSid.
type fakeCallLogStore struct {
	mu   sync.Mutex
	rows map[string]*domain.CallLog

	upsertErr error
}

func newFakeCallLogStore() *fakeCallLogStore {
	return &fakeCallLogStore{rows: map[string]*domain.CallLog{}}
}

func (f *fakeCallLogStore) GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[callSid]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCallLogStore) UpsertByCallSid(ctx context.Context, callSid string, apply func(*domain.CallLog)) (*domain.CallLog, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[callSid]
	if !ok {
		row = &domain.CallLog{
			ID:        uuid.New().String(),
			CallSid:   callSid,
			StartedAt: time.Now(),
		}
		f.rows[callSid] = row
	}
	apply(row)
	copied := *row
	return &copied, nil
}

func (f *fakeCallLogStore) ListRecentByLocation(ctx context.Context, locationID string, limit int) ([]*domain.CallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*domain.CallLog, 0)
	for _, row := range f.rows {
		if row.LocationID == locationID {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCallLogStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeCallLogStore) get(callSid string) *domain.CallLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[callSid]
}

// fakeRegistrar implements CallRegistrar with scripted responses.
type fakeRegistrar struct {
	configured bool
	markup     string
	cost       elevenlabs.CostMetadata
	err        error

	lastRequest *elevenlabs.RegisterCallRequest
}

func (f *fakeRegistrar) Configured() bool {
	return f.configured
}

func (f *fakeRegistrar) RegisterCall(ctx context.Context, req elevenlabs.RegisterCallRequest) (string, elevenlabs.CostMetadata, error) {
	f.lastRequest = &req
	if f.err != nil {
		return "", f.cost, f.err
	}
	return f.markup, f.cost, nil
}

var errEngineDown = fmt.Errorf("register-call request failed: context deadline exceeded")
