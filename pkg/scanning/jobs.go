package scanning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// JobRunner runs scans in the background and records their outcome
type JobRunner struct {
	scanner *Scanner
	store   repositories.ScanJobStore
	logger  ectologger.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewJobRunner creates a new JobRunner
func NewJobRunner(scanner *Scanner, store repositories.ScanJobStore, logger ectologger.Logger) *JobRunner {
	return &JobRunner{
		scanner: scanner,
		store:   store,
		logger:  logger,
		running: map[string]context.CancelFunc{},
	}
}

// Start records a running job and scans in a goroutine. The scan outlives
// ctx; use Cancel or Shutdown to stop it.
func (r *JobRunner) Start(ctx context.Context, orgID, actorID string, kind models.EntityKind) (*models.ScanJob, error) {
	ctx, span := tracing.StartSpan(ctx, "scanning.JobRunner.Start")
	defer span.End()

	if !kind.Valid() {
		return nil, repositories.BadRequest("unknown entity kind %q", kind)
	}

	job := &models.ScanJob{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		Kind:        kind,
		RequestedBy: actorID,
		Status:      models.ScanJobStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, repositories.InvalidState("scan runner is shutting down")
	}

	if err := r.store.Create(ctx, job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.running[job.ID] = cancel
	r.wg.Add(1)
	metrics.ScanJobsRunning.Inc()

	snapshot := *job
	go r.run(jobCtx, snapshot)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id": job.ID,
		"org_id": orgID,
		"kind":   kind,
	}).Info("Started background scan")
	return job, nil
}

func (r *JobRunner) run(ctx context.Context, job models.ScanJob) {
	defer r.wg.Done()
	defer metrics.ScanJobsRunning.Dec()
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.running[job.ID]; ok {
			cancel()
			delete(r.running, job.ID)
		}
		r.mu.Unlock()
	}()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"job_id": job.ID, "org_id": job.OrgID})

	result, err := r.scanner.Scan(ctx, job.OrgID, job.Kind)
	finished := time.Now().UTC()
	job.FinishedAt = &finished

	switch {
	case errors.Is(err, context.Canceled):
		job.Status = models.ScanJobStatusCancelled
	case err != nil:
		job.Status = models.ScanJobStatusFailed
		job.Error = models.StringPtr(err.Error())
		log.WithError(err).Error("Background scan failed")
	default:
		job.Status = models.ScanJobStatusCompleted
		job.Clusters = result.Clusters
		job.TotalScanned = result.TotalScanned
	}

	// the job context may already be cancelled; persist the outcome regardless
	if err := r.store.Update(context.WithoutCancel(ctx), &job); err != nil {
		log.WithError(err).Error("Failed to record scan job outcome")
		return
	}
	log.WithField("status", job.Status).Info("Background scan finished")
}

// Get returns a job record
func (r *JobRunner) Get(ctx context.Context, orgID, jobID string) (*models.ScanJob, error) {
	ctx, span := tracing.StartSpan(ctx, "scanning.JobRunner.Get")
	defer span.End()

	return r.store.Get(ctx, orgID, jobID)
}

// Cancel stops a running job. The record moves to cancelled once the scan
// notices.
func (r *JobRunner) Cancel(ctx context.Context, orgID, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "scanning.JobRunner.Cancel")
	defer span.End()

	job, err := r.store.Get(ctx, orgID, jobID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	cancel, ok := r.running[jobID]
	r.mu.Unlock()
	if job.Status != models.ScanJobStatusRunning || !ok {
		return repositories.InvalidState("scan job %s is %s", jobID, job.Status)
	}

	cancel()
	r.logger.WithContext(ctx).WithField("job_id", jobID).Info("Cancelled background scan")
	return nil
}

// Wait blocks until the job is no longer running or ctx ends
func (r *JobRunner) Wait(ctx context.Context, orgID, jobID string) (*models.ScanJob, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := r.store.Get(ctx, orgID, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status != models.ScanJobStatusRunning {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown cancels every running job and waits for them to record their
// outcome
func (r *JobRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.running {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
