package repositories

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EntityStore is CRUD over one entity kind. Every method is scoped to an org.
type EntityStore interface {
	Kind() models.EntityKind
	GetByID(ctx context.Context, orgID, id string) (*models.Entity, error)
	GetAll(ctx context.Context, orgID string, filter models.EntityFilter) ([]models.Entity, error)
	Create(ctx context.Context, entity *models.Entity) (*models.Entity, error)
	// Update writes the given attribute values. Empty strings clear a column.
	Update(ctx context.Context, orgID, id string, fields map[models.Field]string) error
	// Delete removes the record and returns NotFound when it no longer exists.
	Delete(ctx context.Context, orgID, id string) error
}

// RelationshipStore manages the edges between entities and the records
// they are linked to
type RelationshipStore interface {
	MeetingsForContact(ctx context.Context, orgID, contactID string) ([]string, error)
	LinkContactToMeeting(ctx context.Context, orgID, meetingID, contactID string) error
	ContactsByCompany(ctx context.Context, orgID, companyID string) ([]string, error)
	UpdateContactCompany(ctx context.Context, orgID, contactID, companyID string) error

	// ListEdges returns every edge referencing the entity
	ListEdges(ctx context.Context, orgID string, kind models.EntityKind, entityID string) ([]models.Edge, error)
	// Reparent points one edge at toID. An edge toID already has is dropped
	// and reported as deduplicated.
	Reparent(ctx context.Context, orgID string, edge models.Edge, toID string) (models.ReparentOutcome, error)
}

// AliasStore persists historical names and emails of canonical entities
type AliasStore interface {
	// Save upserts an alias; saving an identical alias is a no-op that
	// returns the stored row
	Save(ctx context.Context, alias *models.Alias) (*models.Alias, bool, error)
	ListFor(ctx context.Context, orgID, ownerUserID, canonicalID string) ([]models.Alias, error)
	ListByCanonical(ctx context.Context, orgID, canonicalID string) ([]models.Alias, error)
	Delete(ctx context.Context, orgID, aliasID string) error
}

// AuditStore is the append-only activity log
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, orgID string, filter models.AuditFilter) ([]models.AuditEntry, error)
}

// SuggestionStore persists staged suggestions
type SuggestionStore interface {
	Create(ctx context.Context, suggestion *models.PendingSuggestion) error
	Get(ctx context.Context, orgID, id string) (*models.PendingSuggestion, error)
	// FindPending returns the pending suggestion for (type, target) or nil
	FindPending(ctx context.Context, orgID string, suggestionType models.SuggestionType, targetID string) (*models.PendingSuggestion, error)
	ListPending(ctx context.Context, orgID string, filter models.SuggestionFilter) ([]models.PendingSuggestion, error)
	// MarkReviewed moves a pending suggestion to status. It returns
	// InvalidState when the suggestion is no longer pending.
	MarkReviewed(ctx context.Context, orgID, id string, status models.SuggestionStatus, reviewerID string, reviewedAt time.Time) error
}

// ScanJobStore persists background scan records
type ScanJobStore interface {
	Create(ctx context.Context, job *models.ScanJob) error
	Get(ctx context.Context, orgID, id string) (*models.ScanJob, error)
	Update(ctx context.Context, job *models.ScanJob) error
}

// Transactor runs a unit of work atomically
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles every store the engine needs
type Stores struct {
	Contacts      EntityStore
	Companies     EntityStore
	Relationships RelationshipStore
	Aliases       AliasStore
	Audit         AuditStore
	Suggestions   SuggestionStore
	ScanJobs      ScanJobStore
	Tx            Transactor
}

// Entities returns the store for kind, or nil for an unknown kind
func (s Stores) Entities(kind models.EntityKind) EntityStore {
	switch kind {
	case models.EntityKindContact:
		return s.Contacts
	case models.EntityKindCompany:
		return s.Companies
	}
	return nil
}
