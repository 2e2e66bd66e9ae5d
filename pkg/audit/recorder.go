// Package audit writes resolution decisions to the append-only activity log
package audit

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Entry is the input to Record
type Entry struct {
	OrgID      string
	UserID     string
	Action     models.AuditAction
	EntityType string
	EntityID   string
	EntityName string
	Details    string
	Metadata   map[string]any
}

// Recorder appends audit entries
type Recorder struct {
	store  repositories.AuditStore
	logger ectologger.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(store repositories.AuditStore, logger ectologger.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record writes one entry. It runs inside the caller's transaction when the
// context carries one, so a failed operation leaves no entry behind.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*models.AuditEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Recorder.Record")
	defer span.End()

	if entry.OrgID == "" || entry.Action == "" {
		return nil, repositories.BadRequest("audit entries need an org and an action")
	}

	row := &models.AuditEntry{
		OrgID:      entry.OrgID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		Details:    models.StringPtr(entry.Details),
		Metadata:   entry.Metadata,
	}
	if err := r.store.Append(ctx, row); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		}).Error("Failed to append audit entry")
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"action":    entry.Action,
		"entity_id": entry.EntityID,
		"user_id":   entry.UserID,
	}).Debug("Recorded audit entry")
	return row, nil
}

// List returns recent entries, newest first
func (r *Recorder) List(ctx context.Context, orgID string, filter models.AuditFilter) ([]models.AuditEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Recorder.List")
	defer span.End()

	return r.store.List(ctx, orgID, filter)
}
