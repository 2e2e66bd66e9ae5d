package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type statement struct {
	cypher string
	params map[string]any
}

type fakeWriter struct {
	statements []statement
	err        error
}

func (w *fakeWriter) Write(_ context.Context, cypher string, params map[string]any) error {
	w.statements = append(w.statements, statement{cypher: cypher, params: params})
	return w.err
}

func newProjector(w Writer) *LineageProjector {
	return NewLineageProjector(w, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestLineageProjector_OnMerge(t *testing.T) {
	w := &fakeWriter{}
	err := newProjector(w).OnMerge(context.Background(), &models.MergeEvent{
		OrgID:     "org-1",
		ActorID:   "user-1",
		Kind:      models.EntityKindCompany,
		KeepID:    "keep",
		KeepName:  "Acme",
		MergeID:   "merge",
		MergeName: "Acme Inc",
		MergedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Summary:   &models.MergeSummary{},
	})
	require.NoError(t, err)
	require.Len(t, w.statements, 1)

	st := w.statements[0]
	assert.Contains(t, st.cypher, "MERGE (k:Company")
	assert.Contains(t, st.cypher, "MERGED_INTO")
	assert.Equal(t, "merge", st.params["merge_id"])
	assert.Equal(t, "2026-03-01T12:00:00Z", st.params["merged_at"])
}

func TestLineageProjector_OnSuggestionReviewed(t *testing.T) {
	contactID, companyID := "contact-1", "company-1"
	link := &models.PendingSuggestion{
		ID:                 "s-1",
		Type:               models.SuggestionTypeCompanyLink,
		ContactID:          &contactID,
		SuggestedCompanyID: &companyID,
		Status:             models.SuggestionStatusApproved,
	}

	w := &fakeWriter{}
	p := newProjector(w)
	require.NoError(t, p.OnSuggestionReviewed(context.Background(), &models.SuggestionEvent{OrgID: "org-1", Suggestion: link}))
	require.Len(t, w.statements, 1)
	assert.Contains(t, w.statements[0].cypher, "WORKS_AT")
	assert.Equal(t, companyID, w.statements[0].params["company_id"])

	rejected := *link
	rejected.Status = models.SuggestionStatusRejected
	require.NoError(t, p.OnSuggestionReviewed(context.Background(), &models.SuggestionEvent{Suggestion: &rejected}))

	enrichment := *link
	enrichment.Type = models.SuggestionTypeEnrichment
	require.NoError(t, p.OnSuggestionReviewed(context.Background(), &models.SuggestionEvent{Suggestion: &enrichment}))

	assert.Len(t, w.statements, 1, "only approved company links are projected")
}

func TestLineageProjector_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("bolt closed")}
	err := newProjector(w).OnMerge(context.Background(), &models.MergeEvent{Summary: &models.MergeSummary{}})
	require.Error(t, err)
}
