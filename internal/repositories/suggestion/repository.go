// Package suggestion persists staged suggestions awaiting review
package suggestion

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

// Repository is the Postgres SuggestionStore
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new suggestion repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a suggestion. A second pending suggestion for the same
// (type, target) violates the partial unique index and returns InvalidState.
func (r *Repository) Create(ctx context.Context, suggestion *models.PendingSuggestion) error {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.Create")
	defer span.End()

	if suggestion.ID == "" {
		suggestion.ID = uuid.New().String()
	}
	if suggestion.Status == "" {
		suggestion.Status = models.SuggestionStatusPending
	}
	suggestion.CreatedAt = time.Now().UTC()

	ib := suggestionStruct.InsertInto(suggestionsTable, FromSuggestion(suggestion))
	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return repositories.InvalidState("a pending %s suggestion already exists for %s", suggestion.Type, suggestion.TargetID())
		}
		if database.IsForeignKeyViolation(err) {
			return repositories.NotFound("suggestion target %s not found", suggestion.TargetID())
		}
		r.logger.WithContext(ctx).WithError(err).WithField("suggestion_id", suggestion.ID).Error("Failed to create suggestion")
		return repositories.Internal("failed to create suggestion")
	}
	return nil
}

// Get retrieves a suggestion in any status
func (r *Repository) Get(ctx context.Context, orgID, id string) (*models.PendingSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.Get")
	defer span.End()

	sb := suggestionStruct.SelectFrom(suggestionsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("org_id", orgID),
	)

	query, args := sb.Build()
	var row Row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, repositories.NotFound("suggestion %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("suggestion_id", id).Error("Failed to get suggestion")
		return nil, repositories.Internal("failed to get suggestion")
	}
	return ToSuggestion(&row), nil
}

// FindPending returns the pending suggestion for (type, target), or nil
func (r *Repository) FindPending(ctx context.Context, orgID string, suggestionType models.SuggestionType, targetID string) (*models.PendingSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.FindPending")
	defer span.End()

	sb := suggestionStruct.SelectFrom(suggestionsTable)
	sb.Where(
		sb.Equal("org_id", orgID),
		sb.Equal("type", string(suggestionType)),
		sb.Equal("target_id", targetID),
		sb.Equal("status", string(models.SuggestionStatusPending)),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var row Row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("target_id", targetID).Error("Failed to find pending suggestion")
		return nil, repositories.Internal("failed to find pending suggestion")
	}
	return ToSuggestion(&row), nil
}

// ListPending returns pending suggestions, most confident first
func (r *Repository) ListPending(ctx context.Context, orgID string, filter models.SuggestionFilter) ([]models.PendingSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.ListPending")
	defer span.End()

	sb := suggestionStruct.SelectFrom(suggestionsTable)
	where := []string{
		sb.Equal("org_id", orgID),
		sb.Equal("status", string(models.SuggestionStatusPending)),
	}
	if filter.Type != "" {
		where = append(where, sb.Equal("type", string(filter.Type)))
	}
	if filter.ContactID != "" {
		where = append(where, sb.Equal("contact_id", filter.ContactID))
	}
	if filter.CompanyID != "" {
		where = append(where, sb.Equal("company_id", filter.CompanyID))
	}
	sb.Where(where...)
	sb.OrderBy("confidence DESC", "created_at ASC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var rows []Row
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending suggestions")
		return nil, repositories.Internal("failed to list pending suggestions")
	}

	out := make([]models.PendingSuggestion, 0, len(rows))
	for i := range rows {
		out = append(out, *ToSuggestion(&rows[i]))
	}
	return out, nil
}

// MarkReviewed moves a pending suggestion to status. The status check is part
// of the UPDATE, so two concurrent reviews cannot both succeed.
func (r *Repository) MarkReviewed(ctx context.Context, orgID, id string, status models.SuggestionStatus, reviewerID string, reviewedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.MarkReviewed")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(suggestionsTable)
	ub.Set(
		ub.Assign("status", string(status)),
		ub.Assign("reviewed_at", reviewedAt),
		ub.Assign("reviewed_by", database.NullString(reviewerID)),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("org_id", orgID),
		ub.Equal("status", string(models.SuggestionStatusPending)),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("suggestion_id", id).Error("Failed to mark suggestion reviewed")
		return repositories.Internal("failed to mark suggestion reviewed")
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	existing, err := r.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	return repositories.InvalidState("suggestion %s is already %s", id, existing.Status)
}
