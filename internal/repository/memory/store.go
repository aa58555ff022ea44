// internal/repository/memory/store.go
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"salescoach-service/internal/domain/billing"
	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

// Store is an in-process implementation of every repository used by the
// services. It backs local development without Postgres and the unit tests.
type Store struct {
	mu            sync.Mutex
	organizations map[string]billing.Organization
	members       map[string]map[string]bool
	subscriptions map[string][]billing.Subscription
	usage         map[string]billing.UsageRecord
	calls         map[string]call.Call
	analyses      map[string]call.Analysis

	usageWrites   int
	outcomeWrites int
}

func NewStore() *Store {
	return &Store{
		organizations: make(map[string]billing.Organization),
		members:       make(map[string]map[string]bool),
		subscriptions: make(map[string][]billing.Subscription),
		usage:         make(map[string]billing.UsageRecord),
		calls:         make(map[string]call.Call),
		analyses:      make(map[string]call.Analysis),
	}
}

func usageKey(organizationID, month string) string {
	return organizationID + "|" + month
}

// ========== Seeding ==========

func (s *Store) PutOrganization(org billing.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ID] = org
}

func (s *Store) AddMember(organizationID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[organizationID] == nil {
		s.members[organizationID] = make(map[string]bool)
	}
	s.members[organizationID][userID] = true
}

func (s *Store) PutSubscription(sub billing.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = ulid.Make().String()
	}
	s.subscriptions[sub.OrganizationID] = append(s.subscriptions[sub.OrganizationID], sub)
}

func (s *Store) PutUsage(record billing.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey(record.OrganizationID, record.Month)] = record
}

func (s *Store) PutCall(c call.Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[c.ID] = c
}

func (s *Store) PutAnalysis(a call.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[a.CallID] = a
}

// UsageRowCount returns the number of persisted usage rows.
func (s *Store) UsageRowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.usage)
}

// UsageWrites returns the number of increments applied.
func (s *Store) UsageWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usageWrites
}

// OutcomeWrites returns the number of outcome updates issued.
func (s *Store) OutcomeWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomeWrites
}

// ========== Organizations ==========

func (s *Store) FindOrganizationByID(ctx context.Context, id string) (*billing.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &org, nil
}

func (s *Store) CountMembers(ctx context.Context, organizationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members[organizationID]), nil
}

// ========== Subscriptions ==========

func (s *Store) ListByOrganization(ctx context.Context, organizationID string) ([]billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := append([]billing.Subscription(nil), s.subscriptions[organizationID]...)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

// ========== Usage ==========

func (s *Store) FindByMonth(ctx context.Context, organizationID, month string) (*billing.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.usage[usageKey(organizationID, month)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *Store) Increment(ctx context.Context, organizationID, month string, usageType billing.UsageType, limit int) (*billing.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := usageKey(organizationID, month)
	record, ok := s.usage[key]
	if !ok {
		record = billing.UsageRecord{
			ID:             ulid.Make().String(),
			OrganizationID: organizationID,
			Month:          month,
			CreatedAt:      now,
		}
	}

	counter := &record.CallsUsed
	if usageType == billing.UsageRoleplay {
		counter = &record.RoleplaySessionsUsed
	}
	if limit != billing.Unlimited && *counter >= limit {
		return nil, xerrors.ErrQuotaExceeded
	}

	*counter++
	record.UpdatedAt = now
	s.usage[key] = record
	s.usageWrites++

	return &record, nil
}

// ========== Calls ==========

func (s *Store) FindCallByID(ctx context.Context, id string) (*call.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateOutcome(ctx context.Context, id string, patch *call.OutcomePatch) (*call.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calls[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if patch.Result != nil {
		c.Result = sql.NullString{String: string(*patch.Result), Valid: true}
	}
	if patch.Qualified != nil {
		c.Qualified = sql.NullBool{Bool: *patch.Qualified, Valid: true}
	}
	if patch.CashCollected != nil {
		c.CashCollected = sql.NullInt64{Int64: *patch.CashCollected, Valid: true}
	}
	if patch.RevenueGenerated != nil {
		c.RevenueGenerated = sql.NullInt64{Int64: *patch.RevenueGenerated, Valid: true}
	}
	if patch.ReasonForOutcome != nil {
		c.ReasonForOutcome = *patch.ReasonForOutcome
	}
	c.UpdatedAt = time.Now()
	s.calls[id] = c
	s.outcomeWrites++

	return &c, nil
}

func (s *Store) FindAnalysisByCallID(ctx context.Context, callID string) (*call.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[callID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ResetForAnalysis(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return xerrors.ErrNotFound
	}
	delete(s.analyses, callID)
	c.Status = call.StatusPending
	c.UpdatedAt = time.Now()
	s.calls[callID] = c
	return nil
}
