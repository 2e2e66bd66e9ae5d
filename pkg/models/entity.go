package models

import (
	"strings"
	"time"
)

// EntityKind identifies which entity table a record lives in
type EntityKind string

const (
	// EntityKindContact is a person record
	EntityKindContact EntityKind = "contact"
	// EntityKindCompany is an organization record
	EntityKindCompany EntityKind = "company"
)

// Valid reports whether the kind is one the engine resolves
func (k EntityKind) Valid() bool {
	return k == EntityKindContact || k == EntityKindCompany
}

// ApprovalStatus tracks whether a record has been accepted into the CRM
type ApprovalStatus string

const (
	// ApprovalStatusPending records are awaiting review (usually AI-ingested)
	ApprovalStatusPending ApprovalStatus = "pending"
	// ApprovalStatusApproved records are part of the working population
	ApprovalStatusApproved ApprovalStatus = "approved"
	// ApprovalStatusRejected records were declined during review
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Entity is a contact or company subject to identity resolution
type Entity struct {
	ID             string           `json:"id"`
	OrgID          string           `json:"org_id"`
	Kind           EntityKind       `json:"kind"`
	Name           string           `json:"name"`
	Attributes     map[Field]string `json:"attributes,omitempty"`
	ApprovalStatus ApprovalStatus   `json:"approval_status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Value returns the trimmed value of a scalar attribute, or "" when unset
func (e *Entity) Value(f Field) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(e.Attributes[f])
}

// HasValue reports whether the attribute is populated
func (e *Entity) HasValue(f Field) bool {
	return e.Value(f) != ""
}

// Email returns the email attribute
func (e *Entity) Email() string {
	return e.Value(FieldEmail)
}

// Organization returns the value used for organization equality: the
// organization for contacts and the domain for companies
func (e *Entity) Organization() string {
	return e.Value(OrganizationField(e.Kind))
}

// Clone returns a deep copy of the entity
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Attributes = make(map[Field]string, len(e.Attributes))
	for k, v := range e.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// Apply writes the patch onto the entity's attributes
func (e *Entity) Apply(fields map[Field]string) {
	if e.Attributes == nil {
		e.Attributes = make(map[Field]string, len(fields))
	}
	for k, v := range fields {
		e.Attributes[k] = v
	}
}

// EntityFilter narrows GetAll queries
type EntityFilter struct {
	ApprovalStatus ApprovalStatus
	ExcludeIDs     []string
	CompanyID      string
	Limit          int
}
