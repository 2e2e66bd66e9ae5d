package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Writer runs a single write statement
type Writer interface {
	Write(ctx context.Context, cypher string, params map[string]any) error
}

// LineageProjector records which records were absorbed into which, so the
// graph can answer "what did this contact used to be"
type LineageProjector struct {
	writer Writer
	logger ectologger.Logger
}

// NewLineageProjector creates a new projector
func NewLineageProjector(writer Writer, logger ectologger.Logger) *LineageProjector {
	return &LineageProjector{writer: writer, logger: logger}
}

// OnMerge writes (merged)-[:MERGED_INTO]->(kept)
func (p *LineageProjector) OnMerge(ctx context.Context, event *models.MergeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LineageProjector.OnMerge")
	defer span.End()

	cypher, params := mergeStatement(event)
	if err := p.writer.Write(ctx, cypher, params); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("keep_id", event.KeepID).Error("Failed to project merge lineage")
		return err
	}
	return nil
}

// OnSuggestionReviewed writes (contact)-[:WORKS_AT]->(company) for approved
// company links; other decisions do not change the graph
func (p *LineageProjector) OnSuggestionReviewed(ctx context.Context, event *models.SuggestionEvent) error {
	sg := event.Suggestion
	if sg.Type != models.SuggestionTypeCompanyLink || sg.Status != models.SuggestionStatusApproved || sg.SuggestedCompanyID == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "graph.LineageProjector.OnSuggestionReviewed")
	defer span.End()

	cypher, params := companyLinkStatement(event)
	if err := p.writer.Write(ctx, cypher, params); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("suggestion_id", sg.ID).Error("Failed to project company link")
		return err
	}
	return nil
}

func mergeStatement(event *models.MergeEvent) (string, map[string]any) {
	label := labelFor(event.Kind)
	cypher := fmt.Sprintf(`
		MERGE (k:%[1]s {id: $keep_id, org_id: $org_id})
		SET k.name = $keep_name
		MERGE (m:%[1]s {id: $merge_id, org_id: $org_id})
		SET m.name = $merge_name, m.merged = true
		MERGE (m)-[r:MERGED_INTO]->(k)
		SET r.actor_id = $actor_id, r.merged_at = $merged_at
	`, label)

	return cypher, map[string]any{
		"org_id":     event.OrgID,
		"keep_id":    event.KeepID,
		"keep_name":  event.KeepName,
		"merge_id":   event.MergeID,
		"merge_name": event.MergeName,
		"actor_id":   event.ActorID,
		"merged_at":  event.MergedAt.UTC().Format(time.RFC3339),
	}
}

func companyLinkStatement(event *models.SuggestionEvent) (string, map[string]any) {
	sg := event.Suggestion
	cypher := `
		MERGE (c:Contact {id: $contact_id, org_id: $org_id})
		MERGE (co:Company {id: $company_id, org_id: $org_id})
		WITH c, co
		OPTIONAL MATCH (c)-[old:WORKS_AT]->(other:Company)
		WHERE other.id <> $company_id
		DELETE old
		MERGE (c)-[r:WORKS_AT]->(co)
		SET r.suggestion_id = $suggestion_id, r.linked_at = $linked_at
	`
	return cypher, map[string]any{
		"org_id":        event.OrgID,
		"contact_id":    sg.TargetID(),
		"company_id":    *sg.SuggestedCompanyID,
		"suggestion_id": sg.ID,
		"linked_at":     event.ReviewedAt.UTC().Format(time.RFC3339),
	}
}

func labelFor(kind models.EntityKind) string {
	if kind == models.EntityKindCompany {
		return "Company"
	}
	return "Contact"
}
