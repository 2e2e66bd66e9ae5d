package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// EntityTable is one entity kind's table
type EntityTable struct {
	store *Store
	kind  models.EntityKind
}

func (t *EntityTable) Kind() models.EntityKind {
	return t.kind
}

func (t *EntityTable) GetByID(_ context.Context, orgID, id string) (*models.Entity, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	e, ok := t.store.entities[t.kind][id]
	if !ok || e.OrgID != orgID {
		return nil, repositories.NotFound("%s %s not found", t.kind, id)
	}
	return e.Clone(), nil
}

func (t *EntityTable) GetAll(_ context.Context, orgID string, filter models.EntityFilter) ([]models.Entity, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	out := make([]models.Entity, 0)
	for _, e := range t.store.entities[t.kind] {
		if e.OrgID != orgID || excluded[e.ID] {
			continue
		}
		if filter.ApprovalStatus != "" && e.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		if filter.CompanyID != "" && e.Value(models.FieldCompanyID) != filter.CompanyID {
			continue
		}
		out = append(out, *e.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *EntityTable) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	if entity.Name == "" {
		return nil, repositories.BadRequest("%s name is required", t.kind)
	}

	e := entity.Clone()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Kind = t.kind
	if e.ApprovalStatus == "" {
		e.ApprovalStatus = models.ApprovalStatusApproved
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.Attributes == nil {
		e.Attributes = map[models.Field]string{}
	}

	defer t.store.lockWrite(ctx)()

	if _, exists := t.store.entities[t.kind][e.ID]; exists {
		return nil, repositories.InvalidState("%s %s already exists", t.kind, e.ID)
	}
	t.store.entities[t.kind][e.ID] = e
	return e.Clone(), nil
}

func (t *EntityTable) Update(ctx context.Context, orgID, id string, fields map[models.Field]string) error {
	for f := range fields {
		if !models.IsMergeable(t.kind, f) {
			return repositories.BadRequest("field %s is not a %s field", f, t.kind)
		}
	}

	defer t.store.lockWrite(ctx)()

	e, ok := t.store.entities[t.kind][id]
	if !ok || e.OrgID != orgID {
		return repositories.NotFound("%s %s not found", t.kind, id)
	}
	for f, v := range fields {
		if v == "" {
			delete(e.Attributes, f)
			continue
		}
		e.Attributes[f] = v
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *EntityTable) Delete(ctx context.Context, orgID, id string) error {
	defer t.store.lockWrite(ctx)()

	e, ok := t.store.entities[t.kind][id]
	if !ok || e.OrgID != orgID {
		return repositories.NotFound("%s %s not found", t.kind, id)
	}
	delete(t.store.entities[t.kind], id)

	// edges and aliases cascade like the foreign keys in Postgres
	for k := range t.store.edges {
		if k.Kind == t.kind && k.EntityID == id {
			delete(t.store.edges, k)
		}
	}
	for aliasID, a := range t.store.aliases {
		if a.CanonicalEntityID == id {
			delete(t.store.aliases, aliasID)
		}
	}
	if t.kind == models.EntityKindCompany {
		for _, c := range t.store.entities[models.EntityKindContact] {
			if c.Value(models.FieldCompanyID) == id {
				delete(c.Attributes, models.FieldCompanyID)
			}
		}
	}
	return nil
}
