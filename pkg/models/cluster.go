package models

// Cluster is a candidate group believed to be one real-world identity
type Cluster struct {
	Entities   []Entity `json:"entities"`
	Confidence int      `json:"confidence"`
	Reason     string   `json:"reason"`
}

// ScanResult is the output of a population scan
type ScanResult struct {
	Kind         EntityKind `json:"kind"`
	Clusters     []Cluster  `json:"clusters"`
	TotalScanned int        `json:"total_scanned"`
}

// Candidate is one possible duplicate of a targeted entity
type Candidate struct {
	Entity     Entity `json:"entity"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}
