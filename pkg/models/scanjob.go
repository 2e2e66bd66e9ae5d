package models

import "time"

// ScanJobStatus is the lifecycle state of a background scan
type ScanJobStatus string

const (
	ScanJobStatusRunning   ScanJobStatus = "running"
	ScanJobStatusCompleted ScanJobStatus = "completed"
	ScanJobStatusFailed    ScanJobStatus = "failed"
	ScanJobStatusCancelled ScanJobStatus = "cancelled"
)

// ScanJob is the queryable record of a background cluster scan
type ScanJob struct {
	ID           string        `json:"id"`
	OrgID        string        `json:"org_id"`
	Kind         EntityKind    `json:"kind"`
	RequestedBy  string        `json:"requested_by"`
	Status       ScanJobStatus `json:"status"`
	Clusters     []Cluster     `json:"clusters,omitempty"`
	TotalScanned int           `json:"total_scanned"`
	Error        *string       `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}
