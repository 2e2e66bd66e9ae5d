package suggestions

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// plan is a validated approval. Everything that can fail for a missing or
// moved record is resolved before any write.
type plan struct {
	suggestion *models.PendingSuggestion
	target     *models.Entity
	company    *models.Entity
	patch      map[models.Field]string
	applied    []models.Field
	skipped    []models.Field
}

func (s *Service) prepare(ctx context.Context, orgID string, sg *models.PendingSuggestion) (*plan, error) {
	kind := sg.Type.TargetKind()
	target, err := s.stores.Entities(kind).GetByID(ctx, orgID, sg.TargetID())
	if err != nil {
		return nil, err
	}

	p := &plan{suggestion: sg, target: target}
	switch sg.Type {
	case models.SuggestionTypeCompanyLink:
		companyID := ""
		if sg.SuggestedCompanyID != nil {
			companyID = *sg.SuggestedCompanyID
		}
		company, err := s.stores.Companies.GetByID(ctx, orgID, companyID)
		if err != nil {
			return nil, err
		}
		// a link is an explicit change of employer and replaces any current company
		p.company = company
		p.patch = map[models.Field]string{models.FieldCompanyID: company.ID}
		p.applied = []models.Field{models.FieldCompanyID}
	default:
		r := models.Reconcile(target, sg.SuggestedData.Fields)
		p.patch, p.applied, p.skipped = r.Patch, r.Applied, r.Skipped
	}
	return p, nil
}

// apply claims the suggestion with a conditional status change, then writes
// the planned values
func (s *Service) apply(ctx context.Context, orgID, actorID string, p *plan, status models.SuggestionStatus) (time.Time, error) {
	reviewedAt, err := s.markReviewed(ctx, orgID, actorID, p.suggestion, status)
	if err != nil {
		return time.Time{}, err
	}

	switch {
	case p.suggestion.Type == models.SuggestionTypeCompanyLink:
		err = s.stores.Relationships.UpdateContactCompany(ctx, orgID, p.target.ID, p.company.ID)
	case len(p.patch) > 0:
		err = s.stores.Entities(p.target.Kind).Update(ctx, orgID, p.target.ID, p.patch)
	}
	if err != nil {
		return time.Time{}, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"suggestion_id":  p.suggestion.ID,
		"type":           p.suggestion.Type,
		"target_id":      p.target.ID,
		"fields_applied": p.applied,
		"fields_skipped": p.skipped,
	}).Info("Applied suggestion")
	return reviewedAt, nil
}

func (p *plan) metadata() map[string]any {
	md := map[string]any{
		"suggestion_id":  p.suggestion.ID,
		"type":           string(p.suggestion.Type),
		"confidence":     p.suggestion.Confidence,
		"fields_applied": fieldNames(p.applied),
		"fields_skipped": fieldNames(p.skipped),
	}
	if p.company != nil {
		md["suggested_company_id"] = p.company.ID
		md["suggested_company_name"] = p.company.Name
	}
	return md
}

func fieldNames(fields []models.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
