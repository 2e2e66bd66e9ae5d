package models

import "time"

// AliasSource records how an alias came to exist
type AliasSource string

const (
	// AliasSourceManual aliases were entered by a user
	AliasSourceManual AliasSource = "manual"
	// AliasSourceMerge aliases were captured when a record was absorbed
	AliasSourceMerge AliasSource = "merge"
)

// Alias is a historical name/email that now resolves to a canonical entity
type Alias struct {
	ID                string      `json:"id" db:"id"`
	OrgID             string      `json:"org_id" db:"org_id"`
	OwnerUserID       string      `json:"owner_user_id" db:"owner_user_id"`
	CanonicalEntityID string      `json:"canonical_entity_id" db:"canonical_entity_id"`
	EntityKind        EntityKind  `json:"entity_kind" db:"entity_kind"`
	AliasName         string      `json:"alias_name" db:"alias_name"`
	AliasEmail        *string     `json:"alias_email,omitempty" db:"alias_email"`
	Source            AliasSource `json:"source" db:"source"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}
