package audit

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/memstore"
	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

func newRecorder() *Recorder {
	return NewRecorder(memstore.New().Stores().Audit, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	r := newRecorder()

	entry, err := r.Record(ctx, Entry{
		OrgID:      "org-1",
		UserID:     "user-1",
		Action:     models.AuditActionDismissDuplicate,
		EntityType: string(models.EntityKindContact),
		EntityID:   "c-1",
		EntityName: "Jake Ryan",
		Metadata:   map[string]any{"other_id": "c-2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Nil(t, entry.Details)

	entries, err := r.List(ctx, "org-1", models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionDismissDuplicate, entries[0].Action)
	assert.Equal(t, "contact", entries[0].EntityType)
	assert.Equal(t, "c-2", entries[0].Metadata["other_id"])
}

func TestRecorder_RecordRequiresAction(t *testing.T) {
	_, err := newRecorder().Record(context.Background(), Entry{OrgID: "org-1"})
	require.Error(t, err)
	assert.True(t, repositories.IsBadRequest(err))
}

func TestRecorder_ListIsScopedToOrg(t *testing.T) {
	ctx := context.Background()
	r := newRecorder()

	for _, org := range []string{"org-1", "org-2", "org-1"} {
		_, err := r.Record(ctx, Entry{OrgID: org, Action: models.AuditActionRejectSuggestion, EntityID: "s"})
		require.NoError(t, err)
	}

	entries, err := r.List(ctx, "org-1", models.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = r.List(ctx, "org-1", models.AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
