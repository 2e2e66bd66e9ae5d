package entity

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

var tables = map[models.EntityKind]string{
	models.EntityKindContact: "contacts",
	models.EntityKindCompany: "companies",
}

// Row is the union of the contacts and companies columns. Only the columns of
// the queried kind are selected; the rest stay NULL.
type Row struct {
	ID             string         `db:"id"`
	OrgID          string         `db:"org_id"`
	Name           string         `db:"name"`
	ApprovalStatus string         `db:"approval_status"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	Email          sql.NullString `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Organization   sql.NullString `db:"organization"`
	Title          sql.NullString `db:"title"`
	DateOfBirth    sql.NullString `db:"date_of_birth"`
	Address        sql.NullString `db:"address"`
	Website        sql.NullString `db:"website"`
	LinkedIn       sql.NullString `db:"linkedin"`
	BankingPartner sql.NullString `db:"banking_partner"`
	Custodian      sql.NullString `db:"custodian"`
	CompanyID      sql.NullString `db:"company_id"`
	Notes          sql.NullString `db:"notes"`
	Domain         sql.NullString `db:"domain"`
	Industry       sql.NullString `db:"industry"`
	Description    sql.NullString `db:"description"`
}

func (r *Row) columns() map[models.Field]*sql.NullString {
	return map[models.Field]*sql.NullString{
		models.FieldEmail:          &r.Email,
		models.FieldPhone:          &r.Phone,
		models.FieldOrganization:   &r.Organization,
		models.FieldTitle:          &r.Title,
		models.FieldDateOfBirth:    &r.DateOfBirth,
		models.FieldAddress:        &r.Address,
		models.FieldWebsite:        &r.Website,
		models.FieldLinkedIn:       &r.LinkedIn,
		models.FieldBankingPartner: &r.BankingPartner,
		models.FieldCustodian:      &r.Custodian,
		models.FieldCompanyID:      &r.CompanyID,
		models.FieldNotes:          &r.Notes,
		models.FieldDomain:         &r.Domain,
		models.FieldIndustry:       &r.Industry,
		models.FieldDescription:    &r.Description,
	}
}

// ToEntity converts a row of the given kind to the domain model
func ToEntity(kind models.EntityKind, row *Row) *models.Entity {
	e := &models.Entity{
		ID:             row.ID,
		OrgID:          row.OrgID,
		Kind:           kind,
		Name:           row.Name,
		ApprovalStatus: models.ApprovalStatus(row.ApprovalStatus),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		Attributes:     map[models.Field]string{},
	}
	cols := row.columns()
	for _, f := range models.MergeableFields(kind) {
		if v := cols[f]; v.Valid && v.String != "" {
			e.Attributes[f] = v.String
		}
	}
	return e
}

// selectColumns lists the kind's columns in table order
func selectColumns(kind models.EntityKind) []string {
	cols := []string{"id", "org_id", "name", "approval_status", "created_at", "updated_at"}
	for _, f := range models.MergeableFields(kind) {
		cols = append(cols, string(f))
	}
	return cols
}
