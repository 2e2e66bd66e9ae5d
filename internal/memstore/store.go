// Package memstore is an in-memory implementation of every repository
// interface. It backs the engine in tests and when STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"sync"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

type txKey struct{}

type edgeKey struct {
	OrgID    string
	Type     models.EdgeType
	Kind     models.EntityKind
	EntityID string
	TargetID string
}

// Store holds every table in memory
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	entities    map[models.EntityKind]map[string]*models.Entity
	edges       map[edgeKey]struct{}
	aliases     map[string]*models.Alias
	audit       []models.AuditEntry
	suggestions map[string]*models.PendingSuggestion
	jobs        map[string]*models.ScanJob

	// ReparentHook, when set, is called before each edge is re-parented and
	// can fail it
	ReparentHook func(edge models.Edge) error
}

// New returns an empty store
func New() *Store {
	return &Store{
		entities: map[models.EntityKind]map[string]*models.Entity{
			models.EntityKindContact: {},
			models.EntityKindCompany: {},
		},
		edges:       map[edgeKey]struct{}{},
		aliases:     map[string]*models.Alias{},
		suggestions: map[string]*models.PendingSuggestion{},
		jobs:        map[string]*models.ScanJob{},
	}
}

// Stores exposes the store through the repository interfaces
func (s *Store) Stores() repositories.Stores {
	return repositories.Stores{
		Contacts:      &EntityTable{store: s, kind: models.EntityKindContact},
		Companies:     &EntityTable{store: s, kind: models.EntityKindCompany},
		Relationships: &Relationships{store: s},
		Aliases:       &Aliases{store: s},
		Audit:         &ActivityLog{store: s},
		Suggestions:   &Suggestions{store: s},
		ScanJobs:      &ScanJobs{store: s},
		Tx:            s,
	}
}

// RunInTx serializes transactional work and restores the previous state
// when fn fails. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) == s
}

// lockWrite takes the write lock and returns its release. Writes made
// outside a transaction wait for the running transaction to finish, so a
// rollback never discards them.
func (s *Store) lockWrite(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}

	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

type snapshot struct {
	entities    map[models.EntityKind]map[string]*models.Entity
	edges       map[edgeKey]struct{}
	aliases     map[string]*models.Alias
	audit       []models.AuditEntry
	suggestions map[string]*models.PendingSuggestion
	jobs        map[string]*models.ScanJob
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		entities:    map[models.EntityKind]map[string]*models.Entity{},
		edges:       make(map[edgeKey]struct{}, len(s.edges)),
		aliases:     make(map[string]*models.Alias, len(s.aliases)),
		audit:       append([]models.AuditEntry(nil), s.audit...),
		suggestions: make(map[string]*models.PendingSuggestion, len(s.suggestions)),
		jobs:        make(map[string]*models.ScanJob, len(s.jobs)),
	}
	for kind, table := range s.entities {
		snap.entities[kind] = make(map[string]*models.Entity, len(table))
		for id, e := range table {
			snap.entities[kind][id] = e.Clone()
		}
	}
	for k := range s.edges {
		snap.edges[k] = struct{}{}
	}
	for id, a := range s.aliases {
		c := *a
		snap.aliases[id] = &c
	}
	for id, sg := range s.suggestions {
		c := *sg
		snap.suggestions[id] = &c
	}
	for id, j := range s.jobs {
		c := *j
		snap.jobs[id] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = snap.entities
	s.edges = snap.edges
	s.aliases = snap.aliases
	s.audit = snap.audit
	s.suggestions = snap.suggestions
	s.jobs = snap.jobs
}
