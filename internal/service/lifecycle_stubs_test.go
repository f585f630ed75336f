package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

type policyStoreStub struct {
	mu           sync.Mutex
	policies     map[string]*models.LifecyclePolicy
	seq          int
	findErr      error
	writeErr     error
	incrementErr error
	writes       int
}

func newPolicyStoreStub(policies ...models.LifecyclePolicy) *policyStoreStub {
	s := &policyStoreStub{policies: make(map[string]*models.LifecyclePolicy)}
	for i := range policies {
		p := policies[i]
		p.Rules = p.Rules.Clone()
		s.policies[p.ID] = &p
	}
	return s
}

func (s *policyStoreStub) get(id string) models.LifecyclePolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.policies[id]
}

func (s *policyStoreStub) FindByID(_ context.Context, id string) (*models.LifecyclePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.policies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *p
	out.Rules = p.Rules.Clone()
	return &out, nil
}

func (s *policyStoreStub) Create(_ context.Context, policy *models.LifecyclePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.seq++
	s.writes++
	policy.ID = fmt.Sprintf("pol-%d", s.seq)
	policy.CreatedAt = engineNow
	policy.UpdatedAt = engineNow
	stored := *policy
	s.policies[policy.ID] = &stored
	return nil
}

func (s *policyStoreStub) ListByOrg(_ context.Context, orgID string) ([]models.LifecyclePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LifecyclePolicy, 0)
	for _, p := range s.policies {
		if p.OrgID == orgID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *policyStoreStub) ListActive(_ context.Context) ([]models.LifecyclePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]models.LifecyclePolicy, 0)
	for _, p := range s.policies {
		if p.Status == models.PolicyStatusActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *policyStoreStub) Update(_ context.Context, policy *models.LifecyclePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.policies[policy.ID]; !ok {
		return sql.ErrNoRows
	}
	s.writes++
	stored := *policy
	stored.Rules = policy.Rules.Clone()
	s.policies[policy.ID] = &stored
	return nil
}

func (s *policyStoreStub) Delete(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok || p.OrgID != orgID {
		return sql.ErrNoRows
	}
	s.writes++
	delete(s.policies, id)
	return nil
}

func (s *policyStoreStub) MarkEvaluated(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.policies[id]; ok {
		p.LastEvaluatedAt = &at
	}
	return nil
}

func (s *policyStoreStub) IncrementCounters(_ context.Context, id string, sizeBytes int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return s.incrementErr
	}
	p, ok := s.policies[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.DeletionCount++
	p.BytesReclaimed += sizeBytes
	p.LastDeletionAt = &at
	return nil
}

func (s *policyStoreStub) SetCounters(_ context.Context, id string, totals models.DeletionTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.DeletionCount = totals.Count
	p.BytesReclaimed = totals.Bytes
	p.LastDeletionAt = totals.LastDeletionAt
	return nil
}

type holdStoreStub struct {
	mu        sync.Mutex
	holds     map[string]models.LegalHold
	readErr   error
	seq       int
	onRecheck func()
}

func newHoldStoreStub() *holdStoreStub {
	return &holdStoreStub{holds: make(map[string]models.LegalHold)}
}

func holdKey(orgID, snapshotID string) string { return orgID + "/" + snapshotID }

func (s *holdStoreStub) place(orgID string, snapshotIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range snapshotIDs {
		s.holds[holdKey(orgID, id)] = models.LegalHold{ID: "hold-" + id, OrgID: orgID, SnapshotID: id, Reason: "litigation"}
	}
}

func (s *holdStoreStub) Upsert(_ context.Context, hold *models.LegalHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := holdKey(hold.OrgID, hold.SnapshotID)
	if existing, ok := s.holds[key]; ok {
		existing.Reason = hold.Reason
		existing.UpdatedAt = engineNow
		s.holds[key] = existing
		*hold = existing
		return nil
	}
	s.seq++
	hold.ID = fmt.Sprintf("hold-%d", s.seq)
	hold.PlacedAt = engineNow
	hold.UpdatedAt = engineNow
	s.holds[key] = *hold
	return nil
}

func (s *holdStoreStub) Get(_ context.Context, orgID, snapshotID string) (*models.LegalHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[holdKey(orgID, snapshotID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &hold, nil
}

func (s *holdStoreStub) Delete(_ context.Context, orgID, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := holdKey(orgID, snapshotID)
	if _, ok := s.holds[key]; !ok {
		return sql.ErrNoRows
	}
	delete(s.holds, key)
	return nil
}

func (s *holdStoreStub) ListByOrg(_ context.Context, orgID string) ([]models.LegalHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LegalHold, 0)
	for _, hold := range s.holds {
		if hold.OrgID == orgID {
			out = append(out, hold)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotID < out[j].SnapshotID })
	return out, nil
}

func (s *holdStoreStub) SnapshotIDs(_ context.Context, orgID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]string, 0)
	for _, hold := range s.holds {
		if hold.OrgID == orgID {
			out = append(out, hold.SnapshotID)
		}
	}
	return out, nil
}

func (s *holdStoreStub) HeldAmong(ctx context.Context, orgID string, snapshotIDs []string) ([]string, error) {
	if s.onRecheck != nil {
		s.onRecheck()
	}
	held, err := s.SnapshotIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	set := models.NewHoldSet(held...)
	out := make([]string, 0)
	for _, id := range snapshotIDs {
		if set.Contains(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

type snapshotStoreStub struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	listErr   error
	failOn    map[string]error
	deleted   []string
	onDelete  func(id string)
}

func newSnapshotStoreStub(snapshots ...models.Snapshot) *snapshotStoreStub {
	copied := make([]models.Snapshot, len(snapshots))
	copy(copied, snapshots)
	return &snapshotStoreStub{snapshots: copied, failOn: make(map[string]error)}
}

func (s *snapshotStoreStub) ListCandidates(_ context.Context, orgID string) ([]models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if snap.OrgID == orgID && snap.DeletedAt == nil {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *snapshotStoreStub) Delete(_ context.Context, orgID, snapshotID string, at time.Time) error {
	s.mu.Lock()
	if err, ok := s.failOn[snapshotID]; ok {
		s.mu.Unlock()
		return err
	}
	found := false
	for i := range s.snapshots {
		snap := &s.snapshots[i]
		if snap.ID == snapshotID && snap.OrgID == orgID && snap.DeletedAt == nil {
			deletedAt := at
			snap.DeletedAt = &deletedAt
			found = true
			break
		}
	}
	if found {
		s.deleted = append(s.deleted, snapshotID)
	}
	hook := s.onDelete
	s.mu.Unlock()

	if !found {
		return sql.ErrNoRows
	}
	if hook != nil {
		hook(snapshotID)
	}
	return nil
}

// remove drops a snapshot behind the service's back, as the backup subsystem would.
func (s *snapshotStoreStub) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snapshots {
		if s.snapshots[i].ID == id {
			gone := engineNow
			s.snapshots[i].DeletedAt = &gone
		}
	}
}

func (s *snapshotStoreStub) deletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type deletionLogStub struct {
	mu        sync.Mutex
	events    []models.DeletionEvent
	appendErr error
	listErr   error
}

func (s *deletionLogStub) Append(_ context.Context, event *models.DeletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	event.ID = fmt.Sprintf("evt-%d", len(s.events)+1)
	s.events = append(s.events, *event)
	return nil
}

func (s *deletionLogStub) all() []models.DeletionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DeletionEvent(nil), s.events...)
}

// newestFirst returns matching events ordered by deleted_at descending.
func (s *deletionLogStub) newestFirst(match func(models.DeletionEvent) bool, limit int) []models.DeletionEvent {
	out := make([]models.DeletionEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if match(s.events[i]) {
			out = append(out, s.events[i])
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *deletionLogStub) ListByOrg(_ context.Context, orgID string, limit int) ([]models.DeletionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.newestFirst(func(e models.DeletionEvent) bool { return e.OrgID == orgID }, limit), nil
}

func (s *deletionLogStub) ListByPolicy(_ context.Context, orgID, policyID string, limit int) ([]models.DeletionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.newestFirst(func(e models.DeletionEvent) bool { return e.OrgID == orgID && e.PolicyID == policyID }, limit), nil
}

func (s *deletionLogStub) TotalsByPolicy(_ context.Context, policyID string) (models.DeletionTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals models.DeletionTotals
	for _, e := range s.events {
		if e.PolicyID != policyID {
			continue
		}
		totals.Count++
		totals.Bytes += e.SizeBytes
		at := e.DeletedAt
		if totals.LastDeletionAt == nil || at.After(*totals.LastDeletionAt) {
			totals.LastDeletionAt = &at
		}
	}
	return totals, nil
}

type lifecycleAuditStub struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (s *lifecycleAuditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *log)
	return nil
}

func (s *lifecycleAuditStub) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

func adminClaims(orgID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-admin", OrgID: orgID, Role: models.RoleAdmin}
}

func memberClaims(orgID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-member", OrgID: orgID, Role: models.RoleMember}
}

func fixedClock() time.Time { return engineNow }
