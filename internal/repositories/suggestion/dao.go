package suggestion

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const suggestionsTable = "pending_suggestions"

// Row is a pending_suggestions row. target_id is generated by Postgres and
// only read.
type Row struct {
	ID                 string                       `db:"id"`
	OrgID              string                       `db:"org_id"`
	Type               string                       `db:"type"`
	ContactID          sql.NullString               `db:"contact_id"`
	CompanyID          sql.NullString               `db:"company_id"`
	SuggestedCompanyID sql.NullString               `db:"suggested_company_id"`
	SuggestedData      database.JSONB[models.Patch] `db:"suggested_data"`
	Reason             string                       `db:"reason"`
	Confidence         int                          `db:"confidence"`
	Status             string                       `db:"status"`
	ReviewedAt         sql.NullTime                 `db:"reviewed_at"`
	ReviewedBy         sql.NullString               `db:"reviewed_by"`
	CreatedAt          time.Time                    `db:"created_at"`
}

var suggestionStruct = database.NewStruct(new(Row))

// FromSuggestion converts a domain model to a row
func FromSuggestion(s *models.PendingSuggestion) *Row {
	return &Row{
		ID:                 s.ID,
		OrgID:              s.OrgID,
		Type:               string(s.Type),
		ContactID:          database.NullStringPtr(s.ContactID),
		CompanyID:          database.NullStringPtr(s.CompanyID),
		SuggestedCompanyID: database.NullStringPtr(s.SuggestedCompanyID),
		SuggestedData:      database.NewJSONB(s.SuggestedData),
		Reason:             s.Reason,
		Confidence:         s.Confidence,
		Status:             string(s.Status),
		ReviewedAt:         database.NullTime(s.ReviewedAt),
		ReviewedBy:         database.NullStringPtr(s.ReviewedBy),
		CreatedAt:          s.CreatedAt,
	}
}

// ToSuggestion converts a row to the domain model
func ToSuggestion(row *Row) *models.PendingSuggestion {
	return &models.PendingSuggestion{
		ID:                 row.ID,
		OrgID:              row.OrgID,
		Type:               models.SuggestionType(row.Type),
		ContactID:          database.StringPtr(row.ContactID),
		CompanyID:          database.StringPtr(row.CompanyID),
		SuggestedCompanyID: database.StringPtr(row.SuggestedCompanyID),
		SuggestedData:      row.SuggestedData.GetValue(),
		Reason:             row.Reason,
		Confidence:         row.Confidence,
		Status:             models.SuggestionStatus(row.Status),
		ReviewedAt:         database.TimePtr(row.ReviewedAt),
		ReviewedBy:         database.StringPtr(row.ReviewedBy),
		CreatedAt:          row.CreatedAt,
	}
}
