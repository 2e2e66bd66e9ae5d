package models

import "time"

// AuditAction names a resolution decision written to the activity log
type AuditAction string

const (
	AuditActionApproveSuggestion      AuditAction = "approve_suggestion"
	AuditActionRejectSuggestion       AuditAction = "reject_suggestion"
	AuditActionBulkApproveSuggestions AuditAction = "bulk_approve_suggestions"
	AuditActionBulkRejectSuggestions  AuditAction = "bulk_reject_suggestions"
	AuditActionMergeContacts          AuditAction = "merge_contacts"
	AuditActionMergeCompanies         AuditAction = "merge_companies"
	AuditActionMergeAndApprove        AuditAction = "merge_and_approve"
	AuditActionDismissDuplicate       AuditAction = "dismiss_duplicate"
)

// AuditEntry is one append-only activity log row
type AuditEntry struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	UserID     string         `json:"user_id"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Details    *string        `json:"details,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter narrows activity log reads
type AuditFilter struct {
	EntityID string
	Action   AuditAction
	Limit    int
}
