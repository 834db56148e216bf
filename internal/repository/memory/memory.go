// Package memory holds in-process implementations of the repositories, used when
// STORE_DRIVER=memory and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"med-connect/internal/model"
	"med-connect/internal/repository"
)

// Store groups one in-memory repository per table.
type Store struct {
	Codes       *CodeStore
	Tokens      *AccessTokenStore
	Connections *ConnectionStore
	Audit       *AuditStore
	Reports     *ReportStore
	Clinical    *ClinicalStore
}

func NewStore() *Store {
	return &Store{
		Codes:       &CodeStore{byCode: map[string]model.IdentityCode{}},
		Tokens:      &AccessTokenStore{byID: map[string]model.AccessTokenRecord{}},
		Connections: &ConnectionStore{byPair: map[string]model.Connection{}},
		Audit:       &AuditStore{},
		Reports:     &ReportStore{},
		Clinical:    &ClinicalStore{},
	}
}

// Set exposes the store through the driver-neutral repository interfaces.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Driver:      "memory",
		Codes:       s.Codes,
		Tokens:      s.Tokens,
		Connections: s.Connections,
		Audit:       s.Audit,
		Reports:     s.Reports,
		Clinical:    s.Clinical,
	}
}

type CodeStore struct {
	mu     sync.RWMutex
	byCode map[string]model.IdentityCode
}

func (s *CodeStore) DeleteByPatient(_ context.Context, patientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for code, entry := range s.byCode {
		if entry.PatientID == patientID {
			delete(s.byCode, code)
			removed++
		}
	}
	return removed, nil
}

func (s *CodeStore) FindPatient(_ context.Context, code string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byCode[code]
	if !ok {
		return "", model.ErrCodeNotFound
	}
	return entry.PatientID, nil
}

func (s *CodeStore) Insert(_ context.Context, code model.IdentityCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[code.Code]; taken {
		return model.ErrCodeTaken
	}
	s.byCode[code.Code] = code
	return nil
}

type AccessTokenStore struct {
	mu   sync.RWMutex
	byID map[string]model.AccessTokenRecord
	now  func() time.Time
}

func (s *AccessTokenStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SetClock replaces the clock used to decide which records have expired.
func (s *AccessTokenStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *AccessTokenStore) Create(_ context.Context, record model.AccessTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[record.ID] = record
	return nil
}

func (s *AccessTokenStore) DeleteByPair(_ context.Context, patientID string, requesterID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, rec := range s.byID {
		if rec.PatientID == patientID && rec.RequesterID == requesterID {
			delete(s.byID, id)
			removed++
		}
	}
	return removed, nil
}

func (s *AccessTokenStore) ExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	for _, rec := range s.byID {
		if rec.Fingerprint == fingerprint && rec.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *AccessTokenStore) ListActiveByPatient(_ context.Context, patientID string) ([]model.AccessTokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	out := make([]model.AccessTokenRecord, 0)
	for _, rec := range s.byID {
		if rec.PatientID == patientID && rec.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *AccessTokenStore) CleanExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var removed int64
	for id, rec := range s.byID {
		if !rec.ExpiresAt.After(now) {
			delete(s.byID, id)
			removed++
		}
	}
	return removed, nil
}

// All returns every stored record regardless of expiry.
func (s *AccessTokenStore) All() []model.AccessTokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AccessTokenRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	return out
}

type ConnectionStore struct {
	mu     sync.RWMutex
	byPair map[string]model.Connection
}

func pairKey(requesterID string, patientID string) string {
	return requesterID + "\x00" + patientID
}

func (s *ConnectionStore) Touch(_ context.Context, conn model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(conn.RequesterID, conn.PatientID)
	if existing, ok := s.byPair[key]; ok {
		existing.LastAccessedAt = conn.LastAccessedAt
		s.byPair[key] = existing
		return nil
	}
	s.byPair[key] = conn
	return nil
}

func (s *ConnectionStore) ListRecent(_ context.Context, requesterID string, limit int) ([]model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Connection, 0)
	for _, conn := range s.byPair {
		if conn.RequesterID == requesterID {
			out = append(out, conn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessedAt.After(out[j].LastAccessedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type AuditStore struct {
	mu     sync.RWMutex
	events []model.AuditEvent
}

func (s *AuditStore) Append(_ context.Context, event model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *AuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEvent, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	action := strings.ToLower(strings.TrimSpace(query.Action))

	s.mu.RLock()
	matched := make([]model.AuditEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.PatientID != query.PatientID {
			continue
		}
		if action != "" && string(e.Action) != action {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	total := len(matched)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	return matched[start:end], model.NewMeta(query.Page, query.Limit, total), nil
}

// Events returns a copy of every appended event in insertion order.
func (s *AuditStore) Events() []model.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

type ReportStore struct {
	mu      sync.RWMutex
	reports []model.Report
}

func (s *ReportStore) Create(_ context.Context, report model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, report)
	return nil
}

func (s *ReportStore) ListByPatient(_ context.Context, patientID string, limit int) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Report, 0)
	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].PatientID == patientID {
			out = append(out, s.reports[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ClinicalStore struct {
	mu      sync.RWMutex
	entries []model.ClinicalEntry
}

func (s *ClinicalStore) Create(_ context.Context, entry model.ClinicalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

func (s *ClinicalStore) ListByPatient(_ context.Context, patientID string, category model.ClinicalCategory) ([]model.ClinicalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ClinicalEntry, 0)
	for _, e := range s.entries {
		if e.PatientID == patientID && e.Category == category {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}
