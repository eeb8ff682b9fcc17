// Package history lists past queries and resolves their saved analyses.
package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/store"
)

// ErrDeleted is returned for lookups of an entry deleted in this session.
var ErrDeleted = errors.New("history: entry was deleted")

// API is the subset of backend property endpoints history needs.
type API interface {
	History(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	Details(ctx context.Context, id string) (*model.AnalysisRecord, error)
	DeleteHistory(ctx context.Context, id string) error
}

// VersionSource reports a counter that changes whenever history may be stale.
type VersionSource interface {
	HistoryVersion() uint64
}

// RecordCache persists resolved analyses between runs, per account.
type RecordCache interface {
	GetCachedRecord(ctx context.Context, owner, id string) (*model.AnalysisRecord, error)
	SetCachedRecord(ctx context.Context, owner string, rec *model.AnalysisRecord, ttl time.Duration) error
	DeleteCachedRecord(ctx context.Context, owner, id string) error
}

// OwnerSource names the signed-in account. "" means nobody is signed in.
type OwnerSource interface {
	UserID() string
}

// Option configures the service.
type Option func(*Service)

// WithLimit sets how many entries List fetches.
func WithLimit(n int) Option {
	return func(s *Service) {
		s.limit = n
	}
}

// WithVersionSource makes List refetch whenever the source's version moves.
func WithVersionSource(v VersionSource) Option {
	return func(s *Service) {
		s.version = v
	}
}

// WithRecordCache adds a persistent cache behind the in-memory one. Rows are
// scoped to owner's current account; without an account the cache is
// bypassed.
func WithRecordCache(c RecordCache, owner OwnerSource, ttl time.Duration) Option {
	return func(s *Service) {
		s.records = c
		s.owner = owner
		s.recordTTL = ttl
	}
}

// Service holds the history list and a cache of resolved details.
type Service struct {
	api       API
	version   VersionSource
	records   RecordCache
	owner     OwnerSource
	recordTTL time.Duration
	limit     int

	mu            sync.Mutex
	entries       []model.HistoryEntry
	loaded        bool
	loadedVersion uint64
	details       map[string]*model.AnalysisRecord
	deleted       map[string]bool
}

// NewService creates a history service.
func NewService(api API, opts ...Option) *Service {
	s := &Service{
		api:     api,
		limit:   10,
		details: make(map[string]*model.AnalysisRecord),
		deleted: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) currentVersion() uint64 {
	if s.version == nil {
		return 0
	}
	return s.version.HistoryVersion()
}

// List returns the most recent entries, newest first. The list is fetched
// once and refetched only when the version source has moved.
func (s *Service) List(ctx context.Context) ([]model.HistoryEntry, error) {
	v := s.currentVersion()
	s.mu.Lock()
	if s.loaded && s.loadedVersion == v {
		out := slices.Clone(s.entries)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.fetch(ctx, v)
}

// Refresh refetches the list unconditionally.
func (s *Service) Refresh(ctx context.Context) ([]model.HistoryEntry, error) {
	return s.fetch(ctx, s.currentVersion())
}

func (s *Service) fetch(ctx context.Context, v uint64) ([]model.HistoryEntry, error) {
	entries, err := s.api.History(ctx, s.limit)
	if err != nil {
		return nil, eris.Wrap(err, "history: list")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries = slices.DeleteFunc(entries, func(e model.HistoryEntry) bool { return s.deleted[e.ID] })
	s.entries = entries
	s.loaded = true
	s.loadedVersion = v
	return slices.Clone(entries), nil
}

// Entry returns a loaded list entry by id.
func (s *Service) Entry(id string) (model.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.HistoryEntry{}, false
}

// Detail resolves the analysis for id, fetching it at most once. Deleted
// entries fail with ErrDeleted without contacting the backend.
func (s *Service) Detail(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	s.mu.Lock()
	if s.deleted[id] {
		s.mu.Unlock()
		return nil, ErrDeleted
	}
	if rec, ok := s.details[id]; ok {
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted[id] {
		return nil, ErrDeleted
	}
	s.details[id] = rec
	return rec, nil
}

// cacheOwner returns the account persistent rows belong to, or "" when the
// persistent cache must not be used.
func (s *Service) cacheOwner() string {
	if s.records == nil || s.owner == nil {
		return ""
	}
	return s.owner.UserID()
}

func (s *Service) loadDetail(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	owner := s.cacheOwner()
	if owner != "" {
		rec, err := s.records.GetCachedRecord(ctx, owner, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("history: record cache read failed", zap.String("id", id), zap.Error(err))
		}
	}

	rec, err := s.api.Details(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "history: detail %s", id)
	}

	if owner != "" {
		if err := s.records.SetCachedRecord(ctx, owner, rec, s.recordTTL); err != nil {
			zap.L().Warn("history: record cache write failed", zap.String("id", id), zap.Error(err))
		}
	}
	return rec, nil
}

// Remember caches a record the caller already holds, e.g. a fresh query
// result.
func (s *Service) Remember(rec *model.AnalysisRecord) {
	if rec == nil || rec.ID == "" {
		return
	}
	s.mu.Lock()
	s.details[rec.ID] = rec
	s.mu.Unlock()
}

// Delete removes an entry. The entry disappears from the list immediately
// and is put back if the backend refuses the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.entries, func(e model.HistoryEntry) bool { return e.ID == id })
	var removed model.HistoryEntry
	if idx >= 0 {
		removed = s.entries[idx]
		s.entries = slices.Delete(s.entries, idx, idx+1)
	}
	detail, hadDetail := s.details[id]
	delete(s.details, id)
	s.deleted[id] = true
	s.mu.Unlock()

	if err := s.api.DeleteHistory(ctx, id); err != nil {
		s.mu.Lock()
		delete(s.deleted, id)
		if idx >= 0 {
			s.entries = slices.Insert(s.entries, min(idx, len(s.entries)), removed)
		}
		if hadDetail {
			s.details[id] = detail
		}
		s.mu.Unlock()
		return eris.Wrapf(err, "history: delete %s", id)
	}

	if owner := s.cacheOwner(); owner != "" {
		if err := s.records.DeleteCachedRecord(ctx, owner, id); err != nil {
			zap.L().Warn("history: record cache delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	zap.L().Debug("history: deleted", zap.String("id", id))
	return nil
}
