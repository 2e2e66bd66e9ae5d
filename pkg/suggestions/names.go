package suggestions

import (
	"context"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// nameCache resolves display names for one listing
type nameCache struct {
	stores repositories.Stores
	orgID  string
	names  map[models.EntityKind]map[string]string
}

func newNameCache(stores repositories.Stores, orgID string) *nameCache {
	return &nameCache{
		stores: stores,
		orgID:  orgID,
		names: map[models.EntityKind]map[string]string{
			models.EntityKindContact: {},
			models.EntityKindCompany: {},
		},
	}
}

// lookup returns "" for a nil id or a record that no longer exists
func (c *nameCache) lookup(ctx context.Context, kind models.EntityKind, id *string) (string, error) {
	if id == nil || *id == "" {
		return "", nil
	}
	if name, ok := c.names[kind][*id]; ok {
		return name, nil
	}

	e, err := c.stores.Entities(kind).GetByID(ctx, c.orgID, *id)
	if repositories.IsNotFound(err) {
		c.names[kind][*id] = ""
		return "", nil
	}
	if err != nil {
		return "", err
	}
	c.names[kind][*id] = e.Name
	return e.Name, nil
}
