// Package merging consolidates two records of the same kind into one
package merging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/locking"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config tunes merge behavior
type Config struct {
	// AbortOnPartialFailure rolls the whole merge back when any edge fails
	// to re-parent. By default failures are reported in the summary.
	AbortOnPartialFailure bool
}

// MergeObserver is notified after a merge commits
type MergeObserver interface {
	OnMerge(ctx context.Context, event *models.MergeEvent) error
}

// MergeRequest names the surviving record and the one absorbed into it
type MergeRequest struct {
	OrgID   string `json:"org_id"`
	ActorID string `json:"actor_id"`
	KeepID  string `json:"keep_id"`
	MergeID string `json:"merge_id"`
}

// Engine executes merges
type Engine struct {
	stores    repositories.Stores
	recorder  *audit.Recorder
	locker    locking.Locker
	cfg       Config
	logger    ectologger.Logger
	observers []MergeObserver
}

// NewEngine creates a new merge engine
func NewEngine(
	stores repositories.Stores,
	recorder *audit.Recorder,
	locker locking.Locker,
	cfg Config,
	logger ectologger.Logger,
	observers ...MergeObserver,
) *Engine {
	if locker == nil {
		locker = locking.NewKeyedMutex()
	}
	return &Engine{
		stores:    stores,
		recorder:  recorder,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		observers: observers,
	}
}

// Merge absorbs the contact req.MergeID into req.KeepID
func (e *Engine) Merge(ctx context.Context, req MergeRequest) (*models.MergeSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	return e.merge(ctx, models.EntityKindContact, req, models.AuditActionMergeContacts, nil)
}

// MergeCompany absorbs the company req.MergeID into req.KeepID
func (e *Engine) MergeCompany(ctx context.Context, req MergeRequest) (*models.MergeSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeCompany")
	defer span.End()

	return e.merge(ctx, models.EntityKindCompany, req, models.AuditActionMergeCompanies, nil)
}

// MergeAndApprove folds a pending record into an approved one, which
// resolves the pending record without creating a duplicate
func (e *Engine) MergeAndApprove(ctx context.Context, kind models.EntityKind, orgID, actorID, pendingID, mergeIntoID string) (*models.MergeSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeAndApprove")
	defer span.End()

	req := MergeRequest{OrgID: orgID, ActorID: actorID, KeepID: mergeIntoID, MergeID: pendingID}
	return e.merge(ctx, kind, req, models.AuditActionMergeAndApprove, func(keep, merge *models.Entity) error {
		if merge.ApprovalStatus != models.ApprovalStatusPending {
			return repositories.InvalidState("%s %s is %s, not pending", kind, merge.ID, merge.ApprovalStatus)
		}
		if keep.ApprovalStatus != models.ApprovalStatusApproved {
			return repositories.InvalidState("%s %s is %s, not approved", kind, keep.ID, keep.ApprovalStatus)
		}
		return nil
	})
}

func (e *Engine) merge(
	ctx context.Context,
	kind models.EntityKind,
	req MergeRequest,
	action models.AuditAction,
	precheck func(keep, merge *models.Entity) error,
) (*models.MergeSummary, error) {
	req.KeepID = strings.TrimSpace(req.KeepID)
	req.MergeID = strings.TrimSpace(req.MergeID)
	if req.KeepID == "" || req.MergeID == "" {
		return nil, repositories.BadRequest("keep and merge ids are required")
	}
	if req.KeepID == req.MergeID {
		return nil, repositories.BadRequest("cannot merge %s %s into itself", kind, req.KeepID)
	}
	store := e.stores.Entities(kind)
	if store == nil {
		return nil, repositories.BadRequest("unknown entity kind %q", kind)
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"org_id":   req.OrgID,
		"kind":     kind,
		"keep_id":  req.KeepID,
		"merge_id": req.MergeID,
		"action":   action,
	})

	start := time.Now()
	unlock, err := e.locker.Lock(ctx, lockKey(req.OrgID, kind, req.KeepID), lockKey(req.OrgID, kind, req.MergeID))
	if err != nil {
		log.WithError(err).Warn("Failed to lock merge entities")
		return nil, err
	}
	defer unlock()

	var (
		summary *models.MergeSummary
		event   *models.MergeEvent
	)
	err = e.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		keep, err := store.GetByID(ctx, req.OrgID, req.KeepID)
		if err != nil {
			return err
		}
		merge, err := store.GetByID(ctx, req.OrgID, req.MergeID)
		if err != nil {
			return err
		}
		if precheck != nil {
			if err := precheck(keep, merge); err != nil {
				return err
			}
		}

		report, err := e.reparent(ctx, req, kind)
		if err != nil {
			return err
		}

		reconciled := models.Reconcile(keep, merge.Attributes)
		if len(reconciled.Patch) > 0 {
			if err := store.Update(ctx, req.OrgID, keep.ID, reconciled.Patch); err != nil {
				return err
			}
			keep.Apply(reconciled.Patch)
		}

		aliases, err := e.captureAliases(ctx, req, keep, merge)
		if err != nil {
			return err
		}

		// conditional on the row still existing; a concurrent merge that
		// already absorbed it surfaces NotFound and rolls this one back
		if err := store.Delete(ctx, req.OrgID, merge.ID); err != nil {
			return err
		}

		summary = &models.MergeSummary{
			Success:           true,
			Kind:              kind,
			KeepID:            keep.ID,
			MergeID:           merge.ID,
			FieldsTransferred: reconciled.Applied,
			AliasesCreated:    aliases,
			Edges:             report,
			PartialFailure:    len(report.Failures) > 0,
		}
		summary.Message = summaryMessage(keep, merge, summary)

		if _, err := e.recorder.Record(ctx, audit.Entry{
			OrgID:      req.OrgID,
			UserID:     req.ActorID,
			Action:     action,
			EntityType: string(kind),
			EntityID:   keep.ID,
			EntityName: keep.Name,
			Details:    summary.Message,
			Metadata: map[string]any{
				"keep_id":            keep.ID,
				"merge_id":           merge.ID,
				"merge_name":         merge.Name,
				"fields_transferred": fieldNames(reconciled.Applied),
				"aliases_created":    aliases,
				"edges_moved":        report.Moved,
				"edges_deduplicated": report.Deduplicated,
				"partial_failures":   len(report.Failures),
			},
		}); err != nil {
			return err
		}

		event = &models.MergeEvent{
			OrgID:     req.OrgID,
			ActorID:   req.ActorID,
			Kind:      kind,
			KeepID:    keep.ID,
			KeepName:  keep.Name,
			MergeID:   merge.ID,
			MergeName: merge.Name,
			Summary:   summary,
			MergedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		metrics.RecordMergeFailure(kind)
		log.WithError(err).Warn("Merge failed")
		return nil, err
	}

	metrics.MergeDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	log.WithFields(map[string]any{
		"fields_transferred": len(summary.FieldsTransferred),
		"edges_moved":        summary.Edges.Moved,
		"edges_deduplicated": summary.Edges.Deduplicated,
		"edge_failures":      len(summary.Edges.Failures),
		"aliases_created":    summary.AliasesCreated,
	}).Info("Merged entities")

	e.notify(ctx, event)
	return summary, nil
}

// reparent moves every edge of the merged record to the kept record
func (e *Engine) reparent(ctx context.Context, req MergeRequest, kind models.EntityKind) (models.ReparentReport, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.reparent")
	defer span.End()

	var report models.ReparentReport
	edges, err := e.stores.Relationships.ListEdges(ctx, req.OrgID, kind, req.MergeID)
	if err != nil {
		return report, err
	}

	for _, edge := range edges {
		outcome, err := e.stores.Relationships.Reparent(ctx, req.OrgID, edge, req.KeepID)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"edge_type": edge.Type,
				"target_id": edge.TargetID,
				"merge_id":  req.MergeID,
			}).Warn("Failed to re-parent edge")
		}
		report.Record(edge, outcome, err)
	}

	if len(report.Failures) > 0 && e.cfg.AbortOnPartialFailure {
		return report, repositories.PartialFailure("%d of %d edges could not be re-parented", len(report.Failures), len(edges))
	}
	return report, nil
}

func (e *Engine) notify(ctx context.Context, event *models.MergeEvent) {
	for _, o := range e.observers {
		if err := o.OnMerge(ctx, event); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithField("keep_id", event.KeepID).Warn("Merge observer failed")
		}
	}
}

func lockKey(orgID string, kind models.EntityKind, id string) string {
	return fmt.Sprintf("%s:%s:%s", orgID, kind, id)
}

func summaryMessage(keep, merge *models.Entity, summary *models.MergeSummary) string {
	msg := fmt.Sprintf("Merged %q into %q", merge.Name, keep.Name)
	if summary.PartialFailure {
		msg += fmt.Sprintf("; %d relationship(s) could not be moved", len(summary.Edges.Failures))
	}
	return msg
}

func fieldNames(fields []models.Field) []string {
	return ectolinq.Map(fields, func(f models.Field) string { return string(f) })
}
