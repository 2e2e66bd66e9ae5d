package merging

import (
	"context"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// captureAliases records the merged record's name and email against the kept
// record, and carries over aliases that pointed at the merged record. keep
// must already hold its reconciled values.
func (e *Engine) captureAliases(ctx context.Context, req MergeRequest, keep, merge *models.Entity) (int, error) {
	var candidates []models.Alias

	mergeName := strings.TrimSpace(merge.Name)
	mergeEmail := merge.Email()

	if !strings.EqualFold(mergeName, strings.TrimSpace(keep.Name)) {
		candidates = append(candidates, models.Alias{
			AliasName:  mergeName,
			AliasEmail: models.StringPtr(mergeEmail),
			Source:     models.AliasSourceMerge,
		})
	}
	// the absorbed email resolves to keep under keep's own name
	if mergeEmail != "" && !strings.EqualFold(mergeEmail, keep.Email()) {
		candidates = append(candidates, models.Alias{
			AliasName:  strings.TrimSpace(keep.Name),
			AliasEmail: models.StringPtr(mergeEmail),
			Source:     models.AliasSourceMerge,
		})
	}

	previous, err := e.stores.Aliases.ListByCanonical(ctx, req.OrgID, merge.ID)
	if err != nil {
		return 0, err
	}
	for _, a := range previous {
		if degenerate(a, keep) {
			continue
		}
		candidates = append(candidates, models.Alias{
			OwnerUserID: a.OwnerUserID,
			AliasName:   a.AliasName,
			AliasEmail:  a.AliasEmail,
			Source:      a.Source,
		})
	}

	created := 0
	for i := range candidates {
		a := &candidates[i]
		a.OrgID = req.OrgID
		a.CanonicalEntityID = keep.ID
		a.EntityKind = keep.Kind
		if a.OwnerUserID == "" {
			a.OwnerUserID = req.ActorID
		}

		_, isNew, err := e.stores.Aliases.Save(ctx, a)
		if err != nil {
			return 0, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// degenerate reports whether an alias would just restate keep's current name
// and email
func degenerate(a models.Alias, keep *models.Entity) bool {
	if !strings.EqualFold(strings.TrimSpace(a.AliasName), strings.TrimSpace(keep.Name)) {
		return false
	}
	return a.AliasEmail == nil || *a.AliasEmail == "" || strings.EqualFold(*a.AliasEmail, keep.Email())
}
