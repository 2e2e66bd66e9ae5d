package scanning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/memstore"
	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

const orgID = "org-1"

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newScanner(stores repositories.Stores, cfg Config) *Scanner {
	return NewScanner(stores, matching.NewMatcher(matching.DefaultThresholds()), cfg, noopLogger())
}

func seed(t *testing.T, store repositories.EntityStore, name string, attrs map[models.Field]string, status models.ApprovalStatus) *models.Entity {
	t.Helper()
	e, err := store.Create(context.Background(), &models.Entity{
		OrgID:          orgID,
		Name:           name,
		Attributes:     attrs,
		ApprovalStatus: status,
	})
	require.NoError(t, err)
	return e
}

// code3 spells i as three letters so generated names share no tokens
func code3(i int) string {
	return string([]byte{byte('a' + i/676%26), byte('a' + i/26%26), byte('a' + i%26)})
}

func TestScanner_Scan_RanksExactEmailAboveFirstNameOnly(t *testing.T) {
	stores := memstore.New().Stores()
	seed(t, stores.Contacts, "Carol White", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Alice Smith", map[models.Field]string{models.FieldEmail: "shared@x.com"}, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Carol Black", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Bob Jones", map[models.Field]string{models.FieldEmail: "SHARED@x.com "}, models.ApprovalStatusApproved)

	result, err := newScanner(stores, DefaultConfig()).Scan(context.Background(), orgID, models.EntityKindContact)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalScanned)
	require.Len(t, result.Clusters, 2)

	assert.Equal(t, 90, result.Clusters[0].Confidence)
	assert.Equal(t, "Same email address", result.Clusters[0].Reason)
	assert.ElementsMatch(t, []string{"Alice Smith", "Bob Jones"}, names(result.Clusters[0].Entities))

	assert.Equal(t, 40, result.Clusters[1].Confidence)
	assert.Equal(t, "Same first name", result.Clusters[1].Reason)
	assert.Greater(t, result.Clusters[0].Confidence, result.Clusters[1].Confidence)
}

func TestScanner_Scan_OnlyApproved(t *testing.T) {
	stores := memstore.New().Stores()
	seed(t, stores.Contacts, "Jake Ryan", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Jake Ryan", nil, models.ApprovalStatusPending)
	seed(t, stores.Contacts, "Jake Ryan", nil, models.ApprovalStatusRejected)

	result, err := newScanner(stores, DefaultConfig()).Scan(context.Background(), orgID, models.EntityKindContact)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalScanned)
	assert.Empty(t, result.Clusters)
}

func TestScanner_Scan_DistinctPopulation(t *testing.T) {
	stores := memstore.New().Stores()
	for i := 0; i < 200; i++ {
		seed(t, stores.Contacts,
			fmt.Sprintf("f%s lastname%s", code3(i), code3(i)),
			map[models.Field]string{models.FieldEmail: fmt.Sprintf("person%d@example.com", i)},
			models.ApprovalStatusApproved)
	}

	result, err := newScanner(stores, DefaultConfig()).Scan(context.Background(), orgID, models.EntityKindContact)
	require.NoError(t, err)
	assert.Equal(t, 200, result.TotalScanned)
	assert.Empty(t, result.Clusters)
}

func TestScanner_Scan_TruncatesToMaxClusters(t *testing.T) {
	stores := memstore.New().Stores()
	for i := 0; i < 4; i++ {
		seed(t, stores.Companies, "Acme Holdings", nil, models.ApprovalStatusApproved)
	}

	result, err := newScanner(stores, Config{MaxClusters: 2}).Scan(context.Background(), orgID, models.EntityKindCompany)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalScanned)
	assert.Len(t, result.Clusters, 2)
	for _, c := range result.Clusters {
		assert.Len(t, c.Entities, 2)
		assert.Equal(t, 90, c.Confidence)
	}
}

func TestScanner_Scan_UnknownKind(t *testing.T) {
	_, err := newScanner(memstore.New().Stores(), DefaultConfig()).Scan(context.Background(), orgID, models.EntityKind("meeting"))
	require.Error(t, err)
	assert.True(t, repositories.IsBadRequest(err))
}

func TestScanner_Scan_Cancelled(t *testing.T) {
	stores := memstore.New().Stores()
	seed(t, stores.Contacts, "Jake Ryan", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Ryan Jake", nil, models.ApprovalStatusApproved)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScanner(stores, DefaultConfig()).Scan(ctx, orgID, models.EntityKindContact)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScanner_FindDuplicatesFor(t *testing.T) {
	stores := memstore.New().Stores()
	target := seed(t, stores.Contacts, "Jake Ryan", map[models.Field]string{models.FieldEmail: "jake@x.com"}, models.ApprovalStatusApproved)
	swapped := seed(t, stores.Contacts, "Ryan Jake", nil, models.ApprovalStatusApproved)
	loose := seed(t, stores.Contacts, "Jakey Stone", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Ryan Jake", nil, models.ApprovalStatusPending)
	seed(t, stores.Contacts, "Maria Lopez", nil, models.ApprovalStatusApproved)

	candidates, err := newScanner(stores, DefaultConfig()).FindDuplicatesFor(context.Background(), orgID, models.EntityKindContact, target.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, swapped.ID, candidates[0].Entity.ID)
	assert.Equal(t, 85, candidates[0].Confidence)
	assert.Equal(t, "Name parts swapped", candidates[0].Reason)

	assert.Equal(t, loose.ID, candidates[1].Entity.ID)
	assert.Equal(t, 35, candidates[1].Confidence)
}

func TestScanner_FindDuplicatesFor_Limit(t *testing.T) {
	stores := memstore.New().Stores()
	target := seed(t, stores.Contacts, "Dana Price", nil, models.ApprovalStatusApproved)
	for i := 0; i < 8; i++ {
		seed(t, stores.Contacts, "Dana Price", nil, models.ApprovalStatusApproved)
	}

	candidates, err := newScanner(stores, Config{MaxTargeted: 3}).FindDuplicatesFor(context.Background(), orgID, models.EntityKindContact, target.ID)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
	for _, c := range candidates {
		assert.NotEqual(t, target.ID, c.Entity.ID)
	}
}

func TestScanner_FindDuplicatesFor_NotFound(t *testing.T) {
	_, err := newScanner(memstore.New().Stores(), DefaultConfig()).FindDuplicatesFor(context.Background(), orgID, models.EntityKindContact, "missing")
	require.Error(t, err)
	assert.True(t, repositories.IsNotFound(err))
}

func names(entities []models.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

// blockingContacts stalls GetAll until the context ends
type blockingContacts struct {
	repositories.EntityStore
	started chan struct{}
}

func (b *blockingContacts) GetAll(ctx context.Context, _ string, _ models.EntityFilter) ([]models.Entity, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestJobRunner_Completes(t *testing.T) {
	stores := memstore.New().Stores()
	seed(t, stores.Contacts, "Jake Ryan", nil, models.ApprovalStatusApproved)
	seed(t, stores.Contacts, "Ryan Jake", nil, models.ApprovalStatusApproved)

	runner := NewJobRunner(newScanner(stores, DefaultConfig()), stores.ScanJobs, noopLogger())
	ctx := context.Background()

	job, err := runner.Start(ctx, orgID, "user-1", models.EntityKindContact)
	require.NoError(t, err)
	assert.Equal(t, models.ScanJobStatusRunning, job.Status)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	done, err := runner.Wait(waitCtx, orgID, job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ScanJobStatusCompleted, done.Status)
	assert.Equal(t, 2, done.TotalScanned)
	assert.Len(t, done.Clusters, 1)
	assert.NotNil(t, done.FinishedAt)

	err = runner.Cancel(ctx, orgID, job.ID)
	assert.True(t, repositories.IsInvalidState(err))
	require.NoError(t, runner.Shutdown(ctx))
}

func TestJobRunner_Cancel(t *testing.T) {
	stores := memstore.New().Stores()
	blocking := &blockingContacts{EntityStore: stores.Contacts, started: make(chan struct{})}
	stores.Contacts = blocking

	runner := NewJobRunner(newScanner(stores, DefaultConfig()), stores.ScanJobs, noopLogger())
	ctx := context.Background()

	job, err := runner.Start(ctx, orgID, "user-1", models.EntityKindContact)
	require.NoError(t, err)
	<-blocking.started

	require.NoError(t, runner.Cancel(ctx, orgID, job.ID))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	done, err := runner.Wait(waitCtx, orgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanJobStatusCancelled, done.Status)
	assert.Nil(t, done.Error)
}

func TestJobRunner_Shutdown(t *testing.T) {
	stores := memstore.New().Stores()
	blocking := &blockingContacts{EntityStore: stores.Contacts, started: make(chan struct{})}
	stores.Contacts = blocking

	runner := NewJobRunner(newScanner(stores, DefaultConfig()), stores.ScanJobs, noopLogger())
	ctx := context.Background()

	job, err := runner.Start(ctx, orgID, "user-1", models.EntityKindContact)
	require.NoError(t, err)
	<-blocking.started

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(shutdownCtx))

	stored, err := runner.Get(ctx, orgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanJobStatusCancelled, stored.Status)

	_, err = runner.Start(ctx, orgID, "user-1", models.EntityKindContact)
	assert.True(t, repositories.IsInvalidState(err))
}

func TestJobRunner_GetNotFound(t *testing.T) {
	stores := memstore.New().Stores()
	runner := NewJobRunner(newScanner(stores, DefaultConfig()), stores.ScanJobs, noopLogger())
	_, err := runner.Get(context.Background(), orgID, "missing")
	assert.True(t, repositories.IsNotFound(err))
}
