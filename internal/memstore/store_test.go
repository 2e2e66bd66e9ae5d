package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

const orgID = "org-1"

func TestStore_RunInTx_RollsBackOwnWrites(t *testing.T) {
	stores := New().Stores()
	ctx := context.Background()

	err := stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := stores.Contacts.Create(ctx, &models.Entity{ID: "c-1", OrgID: orgID, Name: "Jake Ryan"})
		require.NoError(t, err)
		return repositories.NotFound("company missing")
	})
	require.Error(t, err)

	_, err = stores.Contacts.GetByID(ctx, orgID, "c-1")
	assert.True(t, repositories.IsNotFound(err))
}

func TestStore_RunInTx_RollbackKeepsOutsideWrites(t *testing.T) {
	stores := New().Stores()
	ctx := context.Background()

	job := models.ScanJob{ID: "job-1", OrgID: orgID, Kind: models.EntityKindContact, Status: models.ScanJobStatusRunning}
	require.NoError(t, stores.ScanJobs.Create(ctx, &job))

	written := make(chan error, 1)
	err := stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		go func() {
			done := job
			done.Status = models.ScanJobStatusCompleted
			written <- stores.ScanJobs.Update(ctx, &done)
		}()

		time.Sleep(20 * time.Millisecond)
		select {
		case <-written:
			t.Error("write outside the transaction landed while it was open")
		default:
		}
		return repositories.NotFound("contact missing")
	})
	require.Error(t, err)

	select {
	case werr := <-written:
		require.NoError(t, werr)
	case <-time.After(time.Second):
		t.Fatal("write outside the transaction never completed")
	}

	stored, err := stores.ScanJobs.Get(ctx, orgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanJobStatusCompleted, stored.Status)
}

func TestStore_RunInTx_NestedJoinsOuter(t *testing.T) {
	stores := New().Stores()
	ctx := context.Background()

	err := stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
			_, err := stores.Contacts.Create(ctx, &models.Entity{ID: "c-1", OrgID: orgID, Name: "Jake Ryan"})
			return err
		})
	})
	require.NoError(t, err)

	got, err := stores.Contacts.GetByID(ctx, orgID, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Jake Ryan", got.Name)
}
