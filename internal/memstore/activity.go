package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ActivityLog is the append-only audit table
type ActivityLog struct {
	store *Store
}

func (l *ActivityLog) Append(ctx context.Context, entry *models.AuditEntry) error {
	e := *entry
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	defer l.store.lockWrite(ctx)()
	l.store.audit = append(l.store.audit, e)

	entry.ID, entry.CreatedAt = e.ID, e.CreatedAt
	return nil
}

// List returns matching entries newest first
func (l *ActivityLog) List(_ context.Context, orgID string, filter models.AuditFilter) ([]models.AuditEntry, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	out := make([]models.AuditEntry, 0)
	for i := len(l.store.audit) - 1; i >= 0; i-- {
		e := l.store.audit[i]
		if e.OrgID != orgID {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
