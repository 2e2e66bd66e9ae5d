package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakePublisher struct {
	messages []kafka.Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.messages = append(p.messages, msg)
	return p.err
}

func newEmitter(p Publisher) *Emitter {
	return NewEmitter(p, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestEmitter_OnMerge(t *testing.T) {
	p := &fakePublisher{}
	mergedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := newEmitter(p).OnMerge(context.Background(), &models.MergeEvent{
		OrgID:     "org-1",
		ActorID:   "user-1",
		Kind:      models.EntityKindContact,
		KeepID:    "keep",
		MergeID:   "merge",
		MergeName: "Ryan Jake",
		MergedAt:  mergedAt,
		Summary: &models.MergeSummary{
			FieldsTransferred: []models.Field{models.FieldEmail},
			Edges:             models.ReparentReport{Moved: 2, Deduplicated: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, p.messages, 1)

	msg := p.messages[0]
	assert.Equal(t, "keep", msg.Key)
	assert.Equal(t, "entity.merged", msg.EventType)

	event, ok := msg.Payload.(*EntityMergedEvent)
	require.True(t, ok)
	assert.Equal(t, "merge", event.MergeID)
	assert.Equal(t, 2, event.EdgesMoved)
	assert.Equal(t, mergedAt, event.Timestamp)
	assert.NotEmpty(t, event.EventID)
}

func TestEmitter_OnSuggestionReviewed(t *testing.T) {
	p := &fakePublisher{}
	companyID := "company-1"

	err := newEmitter(p).OnSuggestionReviewed(context.Background(), &models.SuggestionEvent{
		OrgID:   "org-1",
		ActorID: "user-1",
		Suggestion: &models.PendingSuggestion{
			ID:        "s-1",
			Type:      models.SuggestionTypeCompanyEnrichment,
			CompanyID: &companyID,
			Status:    models.SuggestionStatusRejected,
		},
	})
	require.NoError(t, err)
	require.Len(t, p.messages, 1)
	assert.Equal(t, "suggestion.rejected", p.messages[0].EventType)
	assert.Equal(t, companyID, p.messages[0].Key)

	event := p.messages[0].Payload.(*SuggestionReviewedEvent)
	assert.Equal(t, "company", event.EntityType)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEmitter_PublishError(t *testing.T) {
	p := &fakePublisher{err: errors.New("broker down")}
	err := newEmitter(p).OnMerge(context.Background(), &models.MergeEvent{Summary: &models.MergeSummary{}})
	require.Error(t, err)
}
