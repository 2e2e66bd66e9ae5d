package memstore

import (
	"context"
	"sort"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Relationships stores edge rows and the contact to company reference
type Relationships struct {
	store *Store
}

func (r *Relationships) MeetingsForContact(_ context.Context, orgID, contactID string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var ids []string
	for k := range r.store.edges {
		if k.OrgID == orgID && k.Type == models.EdgeTypeMeeting && k.Kind == models.EntityKindContact && k.EntityID == contactID {
			ids = append(ids, k.TargetID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Relationships) LinkContactToMeeting(ctx context.Context, orgID, meetingID, contactID string) error {
	return r.Link(ctx, orgID, models.Edge{
		Type:       models.EdgeTypeMeeting,
		EntityKind: models.EntityKindContact,
		EntityID:   contactID,
		TargetID:   meetingID,
	})
}

// Link inserts an edge row; linking twice is a no-op
func (r *Relationships) Link(ctx context.Context, orgID string, edge models.Edge) error {
	if edge.Type == models.EdgeTypeEmployee {
		return repositories.BadRequest("employee edges are set through the contact's company")
	}

	defer r.store.lockWrite(ctx)()

	if _, ok := r.store.entities[edge.EntityKind][edge.EntityID]; !ok {
		return repositories.NotFound("%s %s not found", edge.EntityKind, edge.EntityID)
	}
	r.store.edges[edgeKey{OrgID: orgID, Type: edge.Type, Kind: edge.EntityKind, EntityID: edge.EntityID, TargetID: edge.TargetID}] = struct{}{}
	return nil
}

func (r *Relationships) ContactsByCompany(_ context.Context, orgID, companyID string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var ids []string
	for _, c := range r.store.entities[models.EntityKindContact] {
		if c.OrgID == orgID && c.Value(models.FieldCompanyID) == companyID {
			ids = append(ids, c.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Relationships) UpdateContactCompany(ctx context.Context, orgID, contactID, companyID string) error {
	defer r.store.lockWrite(ctx)()

	c, ok := r.store.entities[models.EntityKindContact][contactID]
	if !ok || c.OrgID != orgID {
		return repositories.NotFound("contact %s not found", contactID)
	}
	if companyID == "" {
		delete(c.Attributes, models.FieldCompanyID)
		return nil
	}
	if _, ok := r.store.entities[models.EntityKindCompany][companyID]; !ok {
		return repositories.NotFound("company %s not found", companyID)
	}
	c.Attributes[models.FieldCompanyID] = companyID
	return nil
}

func (r *Relationships) ListEdges(ctx context.Context, orgID string, kind models.EntityKind, entityID string) ([]models.Edge, error) {
	r.store.mu.RLock()
	var edges []models.Edge
	for k := range r.store.edges {
		if k.OrgID == orgID && k.Kind == kind && k.EntityID == entityID {
			edges = append(edges, models.Edge{Type: k.Type, EntityKind: k.Kind, EntityID: k.EntityID, TargetID: k.TargetID})
		}
	}
	r.store.mu.RUnlock()

	if kind == models.EntityKindCompany {
		employees, err := r.ContactsByCompany(ctx, orgID, entityID)
		if err != nil {
			return nil, err
		}
		for _, contactID := range employees {
			edges = append(edges, models.Edge{Type: models.EdgeTypeEmployee, EntityKind: kind, EntityID: entityID, TargetID: contactID})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Type != edges[j].Type {
			return edges[i].Type < edges[j].Type
		}
		return edges[i].TargetID < edges[j].TargetID
	})
	return edges, nil
}

func (r *Relationships) Reparent(ctx context.Context, orgID string, edge models.Edge, toID string) (models.ReparentOutcome, error) {
	if hook := r.store.ReparentHook; hook != nil {
		if err := hook(edge); err != nil {
			return 0, err
		}
	}

	if edge.Type == models.EdgeTypeEmployee {
		if err := r.UpdateContactCompany(ctx, orgID, edge.TargetID, toID); err != nil {
			return 0, err
		}
		return models.ReparentMoved, nil
	}

	defer r.store.lockWrite(ctx)()

	from := edgeKey{OrgID: orgID, Type: edge.Type, Kind: edge.EntityKind, EntityID: edge.EntityID, TargetID: edge.TargetID}
	if _, ok := r.store.edges[from]; !ok {
		return 0, repositories.NotFound("%s edge %s -> %s not found", edge.Type, edge.EntityID, edge.TargetID)
	}

	to := from
	to.EntityID = toID
	delete(r.store.edges, from)
	if _, exists := r.store.edges[to]; exists {
		return models.ReparentDeduplicated, nil
	}
	r.store.edges[to] = struct{}{}
	return models.ReparentMoved, nil
}
