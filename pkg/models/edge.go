package models

// EdgeType names a relationship table joined to an entity
type EdgeType string

const (
	EdgeTypeMeeting     EdgeType = "meeting"
	EdgeTypeTask        EdgeType = "task"
	EdgeTypeDocument    EdgeType = "document"
	EdgeTypeInteraction EdgeType = "interaction"
	// EdgeTypeEmployee is the contacts.company_id reference seen from the company side
	EdgeTypeEmployee EdgeType = "employee"
)

// Edge is one link from an entity to another record
type Edge struct {
	Type       EdgeType   `json:"type"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   string     `json:"entity_id"`
	TargetID   string     `json:"target_id"`
}

// ReparentOutcome is the result of moving a single edge
type ReparentOutcome int

const (
	// ReparentMoved means the edge now references the new entity
	ReparentMoved ReparentOutcome = iota
	// ReparentDeduplicated means the new entity already had the edge and the old one was dropped
	ReparentDeduplicated
)

// EdgeFailure records an edge that could not be re-parented
type EdgeFailure struct {
	Edge  Edge   `json:"edge"`
	Error string `json:"error"`
}

// ReparentReport collects the outcome of re-parenting every edge of a merge
type ReparentReport struct {
	Moved        int           `json:"moved"`
	Deduplicated int           `json:"deduplicated"`
	Failures     []EdgeFailure `json:"failures,omitempty"`
}

// Record adds one outcome to the report
func (r *ReparentReport) Record(edge Edge, outcome ReparentOutcome, err error) {
	if err != nil {
		r.Failures = append(r.Failures, EdgeFailure{Edge: edge, Error: err.Error()})
		return
	}
	switch outcome {
	case ReparentMoved:
		r.Moved++
	case ReparentDeduplicated:
		r.Deduplicated++
	}
}
