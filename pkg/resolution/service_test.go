package resolution

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/memstore"
	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/locking"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/scanning"
	"github.com/Ramsey-B/clover/pkg/suggestions"
)

const (
	orgID   = "org-1"
	actorID = "user-1"
)

type fixture struct {
	stores  repositories.Stores
	jobs    *scanning.JobRunner
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	stores := memstore.New().Stores()
	recorder := audit.NewRecorder(stores.Audit, logger)
	scanner := scanning.NewScanner(stores, matching.NewMatcher(matching.DefaultThresholds()), scanning.DefaultConfig(), logger)
	jobs := scanning.NewJobRunner(scanner, stores.ScanJobs, logger)
	engine := merging.NewEngine(stores, recorder, locking.NewKeyedMutex(), merging.Config{}, logger)
	suggestionService := suggestions.NewService(stores, recorder, suggestions.DefaultConfig(), logger)

	t.Cleanup(func() { _ = jobs.Shutdown(context.Background()) })

	return &fixture{
		stores:  stores,
		jobs:    jobs,
		service: NewService(stores, scanner, jobs, engine, suggestionService, recorder, logger),
	}
}

func (f *fixture) contact(t *testing.T, name string, attrs map[models.Field]string) *models.Entity {
	t.Helper()
	e, err := f.stores.Contacts.Create(context.Background(), &models.Entity{OrgID: orgID, Name: name, Attributes: attrs})
	require.NoError(t, err)
	return e
}

func (f *fixture) activity(t *testing.T, action models.AuditAction) []models.AuditEntry {
	t.Helper()
	entries, err := f.service.ListActivity(context.Background(), orgID, models.AuditFilter{Action: action})
	require.NoError(t, err)
	return entries
}

func TestService_ScanThenMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.contact(t, "Jake Ryan", map[models.Field]string{models.FieldEmail: "jake@acme.com"})
	merge := f.contact(t, "Ryan Jake", map[models.Field]string{models.FieldPhone: "+1 555 0100"})
	f.contact(t, "Priya Natarajan", nil)

	result, err := f.service.ScanDuplicates(ctx, orgID, models.EntityKindContact)
	require.NoError(t, err)
	require.Len(t, result.Clusters, 1)
	assert.Equal(t, 85, result.Clusters[0].Confidence)

	summary, err := f.service.MergeEntities(ctx, models.EntityKindContact, orgID, actorID, keep.ID, merge.ID)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.AliasesCreated)

	_, err = f.stores.Contacts.GetByID(ctx, orgID, merge.ID)
	assert.True(t, repositories.IsNotFound(err))

	aliases, err := f.service.ListAliases(ctx, orgID, keep.ID)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "Ryan Jake", aliases[0].AliasName)

	require.NoError(t, f.service.DeleteAlias(ctx, orgID, aliases[0].ID))
	aliases, err = f.service.ListAliases(ctx, orgID, keep.ID)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	assert.Len(t, f.activity(t, models.AuditActionMergeContacts), 1)
}

func TestService_MergeEntities_UnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.MergeEntities(context.Background(), "meeting", orgID, actorID, "a", "b")
	assert.True(t, repositories.IsBadRequest(err))
}

func TestService_DismissDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.contact(t, "Jake Ryan", nil)
	b := f.contact(t, "Jake Rayburn", nil)

	result, err := f.service.DismissDuplicate(ctx, models.EntityKindContact, orgID, actorID, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	entries := f.activity(t, models.AuditActionDismissDuplicate)
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID, entries[0].EntityID)
	assert.Equal(t, "contact", entries[0].EntityType)
	assert.Equal(t, b.ID, entries[0].Metadata["dismissed_id"])

	// both records are untouched
	_, err = f.stores.Contacts.GetByID(ctx, orgID, a.ID)
	require.NoError(t, err)
	_, err = f.stores.Contacts.GetByID(ctx, orgID, b.ID)
	require.NoError(t, err)
}

func TestService_DismissDuplicate_Errors(t *testing.T) {
	f := newFixture(t)
	a := f.contact(t, "Jake Ryan", nil)

	tests := []struct {
		name  string
		kind  models.EntityKind
		idA   string
		idB   string
		check func(error) bool
	}{
		{name: "same id", kind: models.EntityKindContact, idA: a.ID, idB: a.ID, check: repositories.IsBadRequest},
		{name: "blank id", kind: models.EntityKindContact, idA: a.ID, idB: " ", check: repositories.IsBadRequest},
		{name: "unknown kind", kind: "task", idA: a.ID, idB: "other", check: repositories.IsBadRequest},
		{name: "missing entity", kind: models.EntityKindContact, idA: a.ID, idB: "missing", check: repositories.IsNotFound},
		{name: "wrong kind", kind: models.EntityKindCompany, idA: a.ID, idB: "missing", check: repositories.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.DismissDuplicate(context.Background(), tt.kind, orgID, actorID, tt.idA, tt.idB)
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}

	assert.Empty(t, f.activity(t, models.AuditActionDismissDuplicate))
}

func TestService_SuggestionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Jake Ryan", nil)

	sg, created, err := f.service.CreateSuggestion(ctx, orgID, suggestions.CreateRequest{
		Type:       models.SuggestionTypeEnrichment,
		ContactID:  c.ID,
		Patch:      map[string]string{"title": "CFO"},
		Confidence: 70,
	})
	require.NoError(t, err)
	require.True(t, created)

	pending, err := f.service.ListPendingSuggestions(ctx, orgID, models.SuggestionFilter{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Jake Ryan", pending[0].ContactName)

	result, err := f.service.ApproveSuggestion(ctx, orgID, actorID, sg.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	updated, err := f.stores.Contacts.GetByID(ctx, orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "CFO", updated.Value(models.FieldTitle))

	_, err = f.service.RejectSuggestion(ctx, orgID, actorID, sg.ID)
	assert.True(t, repositories.IsInvalidState(err))
}

func TestService_ScanJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contact(t, "Jake Ryan", nil)
	f.contact(t, "Ryan Jake", nil)

	job, err := f.service.StartScanJob(ctx, orgID, actorID, models.EntityKindContact)
	require.NoError(t, err)

	done, err := f.jobs.Wait(ctx, orgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanJobStatusCompleted, done.Status)

	got, err := f.service.GetScanJob(ctx, orgID, job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Clusters, 1)

	assert.True(t, repositories.IsInvalidState(f.service.CancelScanJob(ctx, orgID, job.ID)))
}

func TestService_RequiresOrg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ScanDuplicates(ctx, "", models.EntityKindContact)
	assert.True(t, repositories.IsBadRequest(err))

	_, err = f.service.FindDuplicatesFor(ctx, orgID, models.EntityKindContact, "")
	assert.True(t, repositories.IsBadRequest(err))

	_, err = f.service.BulkApprove(ctx, " ", actorID, []string{"a"})
	assert.True(t, repositories.IsBadRequest(err))

	keep := f.contact(t, "Jake Ryan", nil)
	merge := f.contact(t, "Ryan Jake", nil)

	_, err = f.service.MergeEntities(ctx, models.EntityKindContact, "", actorID, keep.ID, merge.ID)
	assert.True(t, repositories.IsBadRequest(err))

	_, err = f.service.MergeAndApprove(ctx, models.EntityKindContact, "", actorID, merge.ID, keep.ID)
	assert.True(t, repositories.IsBadRequest(err))

	_, err = f.stores.Contacts.GetByID(ctx, orgID, merge.ID)
	require.NoError(t, err, "rejected merge leaves both records")
}
