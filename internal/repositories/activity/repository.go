// Package activity persists the append-only activity log
package activity

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const activityTable = "activity_log"

// Row is an activity_log row
type Row struct {
	ID         string                         `db:"id"`
	OrgID      string                         `db:"org_id"`
	UserID     string                         `db:"user_id"`
	Action     string                         `db:"action"`
	EntityType string                         `db:"entity_type"`
	EntityID   string                         `db:"entity_id"`
	EntityName string                         `db:"entity_name"`
	Details    sql.NullString                 `db:"details"`
	Metadata   database.JSONB[map[string]any] `db:"metadata"`
	CreatedAt  time.Time                      `db:"created_at"`
}

var activityStruct = database.NewStruct(new(Row))

// Repository is the Postgres AuditStore. It never updates or deletes; the
// table's trigger rejects both.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new activity log repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes one entry, filling in its id and timestamp
func (r *Repository) Append(ctx context.Context, entry *models.AuditEntry) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.Append")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now().UTC()

	row := &Row{
		ID:         entry.ID,
		OrgID:      entry.OrgID,
		UserID:     entry.UserID,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		Details:    database.NullStringPtr(entry.Details),
		Metadata:   database.NewJSONB(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}

	query, args := activityStruct.InsertInto(activityTable, row).Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("action", entry.Action).Error("Failed to append activity")
		return repositories.Internal("failed to append activity")
	}
	return nil
}

// List returns entries newest first
func (r *Repository) List(ctx context.Context, orgID string, filter models.AuditFilter) ([]models.AuditEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.List")
	defer span.End()

	sb := activityStruct.SelectFrom(activityTable)
	where := []string{sb.Equal("org_id", orgID)}
	if filter.EntityID != "" {
		where = append(where, sb.Equal("entity_id", filter.EntityID))
	}
	if filter.Action != "" {
		where = append(where, sb.Equal("action", string(filter.Action)))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var rows []Row
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list activity")
		return nil, repositories.Internal("failed to list activity")
	}

	out := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.AuditEntry{
			ID:         row.ID,
			OrgID:      row.OrgID,
			UserID:     row.UserID,
			Action:     models.AuditAction(row.Action),
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			EntityName: row.EntityName,
			Details:    database.StringPtr(row.Details),
			Metadata:   row.Metadata.GetValue(),
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}
