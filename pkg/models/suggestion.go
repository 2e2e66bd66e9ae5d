package models

import "time"

// SuggestionType is the kind of change a suggestion proposes
type SuggestionType string

const (
	// SuggestionTypeCompanyLink links a contact to an existing company
	SuggestionTypeCompanyLink SuggestionType = "company_link"
	// SuggestionTypeEnrichment fills empty contact fields
	SuggestionTypeEnrichment SuggestionType = "enrichment"
	// SuggestionTypeCompanyEnrichment fills empty company fields
	SuggestionTypeCompanyEnrichment SuggestionType = "company_enrichment"
)

// Valid reports whether the type is known
func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionTypeCompanyLink, SuggestionTypeEnrichment, SuggestionTypeCompanyEnrichment:
		return true
	}
	return false
}

// TargetKind is the kind of entity the suggestion mutates
func (t SuggestionType) TargetKind() EntityKind {
	if t == SuggestionTypeCompanyEnrichment {
		return EntityKindCompany
	}
	return EntityKindContact
}

// SuggestionStatus is the review state of a suggestion
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusApproved SuggestionStatus = "approved"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// PendingSuggestion is a staged, unapplied change awaiting human review
type PendingSuggestion struct {
	ID                 string           `json:"id"`
	OrgID              string           `json:"org_id"`
	Type               SuggestionType   `json:"type"`
	ContactID          *string          `json:"contact_id,omitempty"`
	CompanyID          *string          `json:"company_id,omitempty"`
	SuggestedCompanyID *string          `json:"suggested_company_id,omitempty"`
	SuggestedData      Patch            `json:"suggested_data"`
	Reason             string           `json:"reason"`
	Confidence         int              `json:"confidence"`
	Status             SuggestionStatus `json:"status"`
	ReviewedAt         *time.Time       `json:"reviewed_at,omitempty"`
	ReviewedBy         *string          `json:"reviewed_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// TargetID is the id the suggestion is deduplicated on: the contact for
// contact suggestions and the company for company enrichment
func (s *PendingSuggestion) TargetID() string {
	if s.Type == SuggestionTypeCompanyEnrichment {
		return deref(s.CompanyID)
	}
	return deref(s.ContactID)
}

// SuggestionView is a pending suggestion with linked display names resolved
type SuggestionView struct {
	PendingSuggestion
	ContactName          string `json:"contact_name,omitempty"`
	CompanyName          string `json:"company_name,omitempty"`
	SuggestedCompanyName string `json:"suggested_company_name,omitempty"`
}

// SuggestionFilter narrows ListPending
type SuggestionFilter struct {
	Type      SuggestionType `json:"type,omitempty" query:"type"`
	ContactID string         `json:"contact_id,omitempty" query:"contact_id"`
	CompanyID string         `json:"company_id,omitempty" query:"company_id"`
	Limit     int            `json:"limit,omitempty" query:"limit"`
}

// ReviewResult is returned by single approve/reject calls
type ReviewResult struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Suggestion    *PendingSuggestion `json:"suggestion"`
	FieldsApplied []Field            `json:"fields_applied,omitempty"`
	FieldsSkipped []Field            `json:"fields_skipped,omitempty"`
}

// BulkResult is returned by bulk approve/reject calls
type BulkResult struct {
	Requested int      `json:"requested"`
	Succeeded int      `json:"succeeded"`
	Skipped   []string `json:"skipped,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
