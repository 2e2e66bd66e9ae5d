// Package entity persists contacts and companies in Postgres
package entity

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository is the EntityStore for one kind
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	kind   models.EntityKind
	table  string
}

// NewRepository creates a new entity repository for kind
func NewRepository(db database.DB, logger ectologger.Logger, kind models.EntityKind) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		kind:   kind,
		table:  tables[kind],
	}
}

func (r *Repository) Kind() models.EntityKind {
	return r.kind
}

// GetByID retrieves one record
func (r *Repository) GetByID(ctx context.Context, orgID, id string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns(r.kind)...)
	sb.From(r.table)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("org_id", orgID),
	)

	query, args := sb.Build()
	var row Row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, repositories.NotFound("%s %s not found", r.kind, id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Errorf("Failed to get %s", r.kind)
		return nil, repositories.Internal("failed to get " + string(r.kind))
	}

	return ToEntity(r.kind, &row), nil
}

// GetAll lists the org's records matching filter, oldest first
func (r *Repository) GetAll(ctx context.Context, orgID string, filter models.EntityFilter) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.GetAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns(r.kind)...)
	sb.From(r.table)

	where := []string{sb.Equal("org_id", orgID)}
	if filter.ApprovalStatus != "" {
		where = append(where, sb.Equal("approval_status", filter.ApprovalStatus))
	}
	if len(filter.ExcludeIDs) > 0 {
		where = append(where, sb.NotIn("id", database.Strings(filter.ExcludeIDs)...))
	}
	if filter.CompanyID != "" && r.kind == models.EntityKindContact {
		where = append(where, sb.Equal("company_id", filter.CompanyID))
	}
	sb.Where(where...)
	sb.OrderBy("created_at", "id")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var rows []Row
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to list %s records", r.kind)
		return nil, repositories.Internal("failed to list " + string(r.kind) + " records")
	}

	out := make([]models.Entity, 0, len(rows))
	for i := range rows {
		out = append(out, *ToEntity(r.kind, &rows[i]))
	}
	return out, nil
}

// Create inserts a record. Unknown attributes are rejected.
func (r *Repository) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Create")
	defer span.End()

	if entity.Name == "" {
		return nil, repositories.BadRequest("%s name is required", r.kind)
	}
	for f := range entity.Attributes {
		if !models.IsMergeable(r.kind, f) {
			return nil, repositories.BadRequest("field %s is not a %s field", f, r.kind)
		}
	}

	e := entity.Clone()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Kind = r.kind
	if e.ApprovalStatus == "" {
		e.ApprovalStatus = models.ApprovalStatusApproved
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	cols := []string{"id", "org_id", "name", "approval_status", "created_at", "updated_at"}
	values := []any{e.ID, e.OrgID, e.Name, e.ApprovalStatus, e.CreatedAt, e.UpdatedAt}
	for _, f := range models.MergeableFields(r.kind) {
		cols = append(cols, string(f))
		values = append(values, database.NullString(e.Value(f)))
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(r.table)
	ib.Cols(cols...)
	ib.Values(values...)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, repositories.InvalidState("%s %s already exists", r.kind, e.ID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", e.ID).Errorf("Failed to create %s", r.kind)
		return nil, repositories.Internal("failed to create " + string(r.kind))
	}

	return e, nil
}

// Update writes the given columns. Empty values clear the column.
func (r *Repository) Update(ctx context.Context, orgID, id string, fields map[models.Field]string) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Update")
	defer span.End()

	for f := range fields {
		if !models.IsMergeable(r.kind, f) {
			return repositories.BadRequest("field %s is not a %s field", f, r.kind)
		}
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(r.table)
	assignments := []string{ub.Assign("updated_at", time.Now().UTC())}
	for _, f := range models.MergeableFields(r.kind) {
		if v, ok := fields[f]; ok {
			assignments = append(assignments, ub.Assign(string(f), database.NullString(v)))
		}
	}
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("org_id", orgID),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return repositories.NotFound("%s %s references a missing record", r.kind, id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Errorf("Failed to update %s", r.kind)
		return repositories.Internal("failed to update " + string(r.kind))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repositories.NotFound("%s %s not found", r.kind, id)
	}
	return nil
}

// Delete removes a record. Edge rows and aliases cascade.
func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(r.table)
	db.Where(
		db.Equal("id", id),
		db.Equal("org_id", orgID),
	)

	query, args := db.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Errorf("Failed to delete %s", r.kind)
		return repositories.Internal("failed to delete " + string(r.kind))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repositories.NotFound("%s %s not found", r.kind, id)
	}
	return nil
}
