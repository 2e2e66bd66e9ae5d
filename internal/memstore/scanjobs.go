package memstore

import (
	"context"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ScanJobs is the scan_jobs table
type ScanJobs struct {
	store *Store
}

func (j *ScanJobs) Create(ctx context.Context, job *models.ScanJob) error {
	defer j.store.lockWrite(ctx)()

	c := *job
	j.store.jobs[c.ID] = &c
	return nil
}

func (j *ScanJobs) Get(_ context.Context, orgID, id string) (*models.ScanJob, error) {
	j.store.mu.RLock()
	defer j.store.mu.RUnlock()

	job, ok := j.store.jobs[id]
	if !ok || job.OrgID != orgID {
		return nil, repositories.NotFound("scan job %s not found", id)
	}
	c := *job
	return &c, nil
}

func (j *ScanJobs) Update(ctx context.Context, job *models.ScanJob) error {
	defer j.store.lockWrite(ctx)()

	if _, ok := j.store.jobs[job.ID]; !ok {
		return repositories.NotFound("scan job %s not found", job.ID)
	}
	c := *job
	j.store.jobs[c.ID] = &c
	return nil
}
