// Package alias persists the historical names and emails of canonical entities
package alias

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

const aliasesTable = "aliases"

var aliasStruct = database.NewStruct(new(models.Alias))

// Repository is the Postgres AliasStore
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Save inserts an alias. An alias matching an existing row (same owner,
// canonical id, and case-insensitive name and email) is not inserted and the
// existing row is returned with created=false.
func (r *Repository) Save(ctx context.Context, alias *models.Alias) (*models.Alias, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Save")
	defer span.End()

	a := *alias
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	ib := aliasStruct.InsertInto(aliasesTable, &a)
	database.OnConflictDoNothing(ib)

	query, args := ib.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("canonical_entity_id", a.CanonicalEntityID).Error("Failed to save alias")
		return nil, false, repositories.Internal("failed to save alias")
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return &a, true, nil
	}

	existing, err := r.findSame(ctx, &a)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) findSame(ctx context.Context, a *models.Alias) (*models.Alias, error) {
	sb := aliasStruct.SelectFrom(aliasesTable)
	sb.Where(
		sb.Equal("org_id", a.OrgID),
		sb.Equal("owner_user_id", a.OwnerUserID),
		sb.Equal("canonical_entity_id", a.CanonicalEntityID),
		"LOWER(alias_name) = LOWER("+sb.Var(a.AliasName)+")",
		"LOWER(COALESCE(alias_email, '')) = LOWER("+sb.Var(deref(a.AliasEmail))+")",
	)
	sb.Limit(1)

	query, args := sb.Build()
	var existing models.Alias
	if err := database.Conn(ctx, r.db).GetContext(ctx, &existing, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load existing alias")
		return nil, repositories.Internal("failed to load existing alias")
	}
	return &existing, nil
}

// ListFor returns the aliases one user recorded for a canonical entity
func (r *Repository) ListFor(ctx context.Context, orgID, ownerUserID, canonicalID string) ([]models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.ListFor")
	defer span.End()

	sb := aliasStruct.SelectFrom(aliasesTable)
	sb.Where(
		sb.Equal("org_id", orgID),
		sb.Equal("owner_user_id", ownerUserID),
		sb.Equal("canonical_entity_id", canonicalID),
	)
	return r.list(ctx, sb)
}

// ListByCanonical returns every alias of a canonical entity
func (r *Repository) ListByCanonical(ctx context.Context, orgID, canonicalID string) ([]models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.ListByCanonical")
	defer span.End()

	sb := aliasStruct.SelectFrom(aliasesTable)
	sb.Where(
		sb.Equal("org_id", orgID),
		sb.Equal("canonical_entity_id", canonicalID),
	)
	return r.list(ctx, sb)
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Alias, error) {
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	aliases := []models.Alias{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list aliases")
		return nil, repositories.Internal("failed to list aliases")
	}
	return aliases, nil
}

// Delete removes one alias
func (r *Repository) Delete(ctx context.Context, orgID, aliasID string) error {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Delete")
	defer span.End()

	db := aliasStruct.DeleteFrom(aliasesTable)
	db.Where(
		db.Equal("id", aliasID),
		db.Equal("org_id", orgID),
	)

	query, args := db.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("alias_id", aliasID).Error("Failed to delete alias")
		return repositories.Internal("failed to delete alias")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repositories.NotFound("alias %s not found", aliasID)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
