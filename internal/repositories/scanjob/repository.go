// Package scanjob persists background scan records
package scanjob

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const scanJobsTable = "scan_jobs"

// Row is a scan_jobs row. The clusters of a finished scan live in result.
type Row struct {
	ID           string                           `db:"id"`
	OrgID        string                           `db:"org_id"`
	Kind         string                           `db:"kind"`
	RequestedBy  string                           `db:"requested_by"`
	Status       string                           `db:"status"`
	Result       database.JSONB[[]models.Cluster] `db:"result"`
	TotalScanned int                              `db:"total_scanned"`
	Error        sql.NullString                   `db:"error"`
	StartedAt    time.Time                        `db:"started_at"`
	FinishedAt   sql.NullTime                     `db:"finished_at"`
}

var scanJobStruct = database.NewStruct(new(Row))

func fromJob(job *models.ScanJob) *Row {
	return &Row{
		ID:           job.ID,
		OrgID:        job.OrgID,
		Kind:         string(job.Kind),
		RequestedBy:  job.RequestedBy,
		Status:       string(job.Status),
		Result:       database.NewJSONB(job.Clusters),
		TotalScanned: job.TotalScanned,
		Error:        database.NullStringPtr(job.Error),
		StartedAt:    job.StartedAt,
		FinishedAt:   database.NullTime(job.FinishedAt),
	}
}

func toJob(row *Row) *models.ScanJob {
	return &models.ScanJob{
		ID:           row.ID,
		OrgID:        row.OrgID,
		Kind:         models.EntityKind(row.Kind),
		RequestedBy:  row.RequestedBy,
		Status:       models.ScanJobStatus(row.Status),
		Clusters:     row.Result.GetValue(),
		TotalScanned: row.TotalScanned,
		Error:        database.StringPtr(row.Error),
		StartedAt:    row.StartedAt,
		FinishedAt:   database.TimePtr(row.FinishedAt),
	}
}

// Repository is the Postgres ScanJobStore
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new scan job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a job record
func (r *Repository) Create(ctx context.Context, job *models.ScanJob) error {
	ctx, span := tracing.StartSpan(ctx, "scanjob.Repository.Create")
	defer span.End()

	query, args := scanJobStruct.InsertInto(scanJobsTable, fromJob(job)).Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Error("Failed to create scan job")
		return repositories.Internal("failed to create scan job")
	}
	return nil
}

// Get retrieves a job record
func (r *Repository) Get(ctx context.Context, orgID, id string) (*models.ScanJob, error) {
	ctx, span := tracing.StartSpan(ctx, "scanjob.Repository.Get")
	defer span.End()

	sb := scanJobStruct.SelectFrom(scanJobsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("org_id", orgID),
	)

	query, args := sb.Build()
	var row Row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, repositories.NotFound("scan job %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("job_id", id).Error("Failed to get scan job")
		return nil, repositories.Internal("failed to get scan job")
	}
	return toJob(&row), nil
}

// Update records a job's outcome
func (r *Repository) Update(ctx context.Context, job *models.ScanJob) error {
	ctx, span := tracing.StartSpan(ctx, "scanjob.Repository.Update")
	defer span.End()

	row := fromJob(job)
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(scanJobsTable)
	ub.Set(
		ub.Assign("status", row.Status),
		ub.Assign("result", row.Result),
		ub.Assign("total_scanned", row.TotalScanned),
		ub.Assign("error", row.Error),
		ub.Assign("finished_at", row.FinishedAt),
	)
	ub.Where(
		ub.Equal("id", job.ID),
		ub.Equal("org_id", job.OrgID),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Error("Failed to update scan job")
		return repositories.Internal("failed to update scan job")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repositories.NotFound("scan job %s not found", job.ID)
	}
	return nil
}
