// Package relationship persists the edges between entities and the CRM
// records they are linked to
package relationship

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository is the Postgres RelationshipStore
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// MeetingsForContact returns the meeting ids a contact attended
func (r *Repository) MeetingsForContact(ctx context.Context, orgID, contactID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.MeetingsForContact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("meeting_id")
	sb.From("meeting_contacts")
	sb.Where(
		sb.Equal("org_id", orgID),
		sb.Equal("contact_id", contactID),
	)
	sb.OrderBy("meeting_id")

	query, args := sb.Build()
	ids := []string{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", contactID).Error("Failed to list meetings for contact")
		return nil, repositories.Internal("failed to list meetings for contact")
	}
	return ids, nil
}

// LinkContactToMeeting adds a contact to a meeting; linking twice is a no-op
func (r *Repository) LinkContactToMeeting(ctx context.Context, orgID, meetingID, contactID string) error {
	return r.Link(ctx, orgID, models.Edge{
		Type:       models.EdgeTypeMeeting,
		EntityKind: models.EntityKindContact,
		EntityID:   contactID,
		TargetID:   meetingID,
	})
}

// Link inserts an edge row; linking twice is a no-op
func (r *Repository) Link(ctx context.Context, orgID string, edge models.Edge) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Link")
	defer span.End()

	table, err := r.table(edge)
	if err != nil {
		return err
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table.name)
	ib.Cols("org_id", table.targetColumn, table.entityColumn)
	ib.Values(orgID, edge.TargetID, edge.EntityID)
	database.OnConflictDoNothing(ib)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(edgeFields(edge)).Error("Failed to link edge")
		return repositories.Internal("failed to link " + string(edge.Type))
	}
	return nil
}

// ContactsByCompany returns the ids of contacts employed by a company
func (r *Repository) ContactsByCompany(ctx context.Context, orgID, companyID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ContactsByCompany")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("contacts")
	sb.Where(
		sb.Equal("org_id", orgID),
		sb.Equal("company_id", companyID),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	ids := []string{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", companyID).Error("Failed to list company contacts")
		return nil, repositories.Internal("failed to list company contacts")
	}
	return ids, nil
}

// UpdateContactCompany points a contact at a company, or clears it when
// companyID is empty
func (r *Repository) UpdateContactCompany(ctx context.Context, orgID, contactID, companyID string) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.UpdateContactCompany")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("contacts")
	ub.Set(
		ub.Assign("company_id", database.NullString(companyID)),
		"updated_at = NOW()",
	)
	ub.Where(
		ub.Equal("id", contactID),
		ub.Equal("org_id", orgID),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return repositories.NotFound("company %s not found", companyID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", contactID).Error("Failed to update contact company")
		return repositories.Internal("failed to update contact company")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repositories.NotFound("contact %s not found", contactID)
	}
	return nil
}

// ListEdges returns every edge referencing the entity. Companies also list
// their employees through contacts.company_id.
func (r *Repository) ListEdges(ctx context.Context, orgID string, kind models.EntityKind, entityID string) ([]models.Edge, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListEdges")
	defer span.End()

	var edges []models.Edge
	for _, edgeType := range edgeTypes(kind) {
		table := edgeTables[kind][edgeType]

		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select(table.targetColumn)
		sb.From(table.name)
		sb.Where(
			sb.Equal("org_id", orgID),
			sb.Equal(table.entityColumn, entityID),
		)
		sb.OrderBy(table.targetColumn)

		query, args := sb.Build()
		var targets []string
		if err := database.Conn(ctx, r.db).SelectContext(ctx, &targets, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table.name).Error("Failed to list edges")
			return nil, repositories.Internal("failed to list " + table.name)
		}
		for _, target := range targets {
			edges = append(edges, models.Edge{Type: edgeType, EntityKind: kind, EntityID: entityID, TargetID: target})
		}
	}

	if kind == models.EntityKindCompany {
		employees, err := r.ContactsByCompany(ctx, orgID, entityID)
		if err != nil {
			return nil, err
		}
		for _, contactID := range employees {
			edges = append(edges, models.Edge{Type: models.EdgeTypeEmployee, EntityKind: kind, EntityID: entityID, TargetID: contactID})
		}
	}

	return edges, nil
}

// Reparent moves one edge to toID inside a savepoint, so a failed edge does
// not poison the surrounding merge transaction
func (r *Repository) Reparent(ctx context.Context, orgID string, edge models.Edge, toID string) (outcome models.ReparentOutcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Reparent")
	defer span.End()

	conn := database.Conn(ctx, r.db)
	if database.InTx(ctx) {
		if _, err := conn.ExecContext(ctx, "SAVEPOINT reparent_edge"); err != nil {
			return 0, repositories.Internal("failed to open savepoint")
		}
		defer func() {
			stmt := "RELEASE SAVEPOINT reparent_edge"
			if err != nil {
				stmt = "ROLLBACK TO SAVEPOINT reparent_edge"
			}
			if _, spErr := conn.ExecContext(ctx, stmt); spErr != nil && err == nil {
				err = repositories.Internal("failed to close savepoint")
			}
		}()
	}

	if edge.Type == models.EdgeTypeEmployee {
		if err := r.UpdateContactCompany(ctx, orgID, edge.TargetID, toID); err != nil {
			return 0, err
		}
		return models.ReparentMoved, nil
	}

	table, err := r.table(edge)
	if err != nil {
		return 0, err
	}

	// the new parent already has this edge: drop the old row
	exists := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE org_id = $1 AND %s = $2 AND %s = $3)",
		table.name, table.targetColumn, table.entityColumn,
	)
	var duplicate bool
	if err := conn.GetContext(ctx, &duplicate, exists, orgID, edge.TargetID, toID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(edgeFields(edge)).Error("Failed to check edge")
		return 0, repositories.Internal("failed to check " + table.name)
	}

	var stmt string
	if duplicate {
		stmt = fmt.Sprintf("DELETE FROM %s WHERE org_id = $1 AND %s = $2 AND %s = $3",
			table.name, table.targetColumn, table.entityColumn)
	} else {
		stmt = fmt.Sprintf("UPDATE %s SET %s = $4 WHERE org_id = $1 AND %s = $2 AND %s = $3",
			table.name, table.entityColumn, table.targetColumn, table.entityColumn)
	}
	args := []any{orgID, edge.TargetID, edge.EntityID}
	if !duplicate {
		args = append(args, toID)
	}

	result, err := conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(edgeFields(edge)).Error("Failed to reparent edge")
		return 0, repositories.Internal("failed to reparent " + table.name)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, repositories.NotFound("%s edge %s -> %s not found", edge.Type, edge.EntityID, edge.TargetID)
	}

	if duplicate {
		return models.ReparentDeduplicated, nil
	}
	return models.ReparentMoved, nil
}

func (r *Repository) table(edge models.Edge) (edgeTable, error) {
	if edge.Type == models.EdgeTypeEmployee {
		return edgeTable{}, repositories.BadRequest("employee edges are set through the contact's company")
	}
	table, ok := edgeTables[edge.EntityKind][edge.Type]
	if !ok {
		return edgeTable{}, repositories.BadRequest("%s has no %s edges", edge.EntityKind, edge.Type)
	}
	return table, nil
}

func edgeFields(edge models.Edge) map[string]any {
	return map[string]any{
		"edge_type": edge.Type,
		"entity_id": edge.EntityID,
		"target_id": edge.TargetID,
	}
}
