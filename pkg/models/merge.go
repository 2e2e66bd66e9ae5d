package models

import "time"

// MergeSummary is returned by every merge operation
type MergeSummary struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	Kind              EntityKind     `json:"kind"`
	KeepID            string         `json:"keep_id"`
	MergeID           string         `json:"merge_id"`
	FieldsTransferred []Field        `json:"fields_transferred"`
	AliasesCreated    int            `json:"aliases_created"`
	Edges             ReparentReport `json:"edges"`
	PartialFailure    bool           `json:"partial_failure"`
}

// MergeEvent is published to observers after a merge commits
type MergeEvent struct {
	OrgID     string        `json:"org_id"`
	ActorID   string        `json:"actor_id"`
	Kind      EntityKind    `json:"kind"`
	KeepID    string        `json:"keep_id"`
	KeepName  string        `json:"keep_name"`
	MergeID   string        `json:"merge_id"`
	MergeName string        `json:"merge_name"`
	Summary   *MergeSummary `json:"summary"`
	MergedAt  time.Time     `json:"merged_at"`
}

// SuggestionEvent is published to observers after a review decision commits
type SuggestionEvent struct {
	OrgID      string             `json:"org_id"`
	ActorID    string             `json:"actor_id"`
	Suggestion *PendingSuggestion `json:"suggestion"`
	Applied    []Field            `json:"applied,omitempty"`
	ReviewedAt time.Time          `json:"reviewed_at"`
}
