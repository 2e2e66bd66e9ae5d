package models

import "strings"

// Reconciliation is the outcome of filling one entity's empty fields from
// another source
type Reconciliation struct {
	// Patch holds the values to write onto the kept entity
	Patch map[Field]string
	// Applied lists the fields in Patch in allow-list order
	Applied []Field
	// Skipped lists fields the source had but the kept entity already populated
	Skipped []Field
}

// Reconcile copies a value from incoming onto keep only where keep's value is
// empty. Populated fields on keep are never overwritten and fields outside
// keep's allow-list are ignored.
func Reconcile(keep *Entity, incoming map[Field]string) Reconciliation {
	r := Reconciliation{Patch: map[Field]string{}}
	for _, f := range MergeableFields(keep.Kind) {
		v := strings.TrimSpace(incoming[f])
		if v == "" {
			continue
		}
		if keep.HasValue(f) {
			r.Skipped = append(r.Skipped, f)
			continue
		}
		r.Patch[f] = v
		r.Applied = append(r.Applied, f)
	}
	return r
}
