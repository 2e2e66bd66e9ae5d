package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Aliases is the alias table
type Aliases struct {
	store *Store
}

func (a *Aliases) Save(ctx context.Context, alias *models.Alias) (*models.Alias, bool, error) {
	defer a.store.lockWrite(ctx)()

	for _, existing := range a.store.aliases {
		if sameAlias(existing, alias) {
			c := *existing
			return &c, false, nil
		}
	}

	c := *alias
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	a.store.aliases[c.ID] = &c

	out := c
	return &out, true, nil
}

func (a *Aliases) ListFor(_ context.Context, orgID, ownerUserID, canonicalID string) ([]models.Alias, error) {
	return a.list(func(al *models.Alias) bool {
		return al.OrgID == orgID && al.OwnerUserID == ownerUserID && al.CanonicalEntityID == canonicalID
	}), nil
}

func (a *Aliases) ListByCanonical(_ context.Context, orgID, canonicalID string) ([]models.Alias, error) {
	return a.list(func(al *models.Alias) bool {
		return al.OrgID == orgID && al.CanonicalEntityID == canonicalID
	}), nil
}

func (a *Aliases) Delete(ctx context.Context, orgID, aliasID string) error {
	defer a.store.lockWrite(ctx)()

	al, ok := a.store.aliases[aliasID]
	if !ok || al.OrgID != orgID {
		return repositories.NotFound("alias %s not found", aliasID)
	}
	delete(a.store.aliases, aliasID)
	return nil
}

func (a *Aliases) list(keep func(*models.Alias) bool) []models.Alias {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	out := make([]models.Alias, 0)
	for _, al := range a.store.aliases {
		if keep(al) {
			out = append(out, *al)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sameAlias(a, b *models.Alias) bool {
	return a.OrgID == b.OrgID &&
		a.OwnerUserID == b.OwnerUserID &&
		a.CanonicalEntityID == b.CanonicalEntityID &&
		strings.EqualFold(a.AliasName, b.AliasName) &&
		strings.EqualFold(deref(a.AliasEmail), deref(b.AliasEmail))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
