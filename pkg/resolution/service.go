// Package resolution is the entry point for every identity resolution
// operation. It validates the caller's parameters and delegates to the
// scanner, merge engine, suggestion service and alias store.
package resolution

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/scanning"
	"github.com/Ramsey-B/clover/pkg/suggestions"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DismissResult is returned when a candidate pair is marked as not a duplicate
type DismissResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service exposes the resolution operations
type Service struct {
	stores      repositories.Stores
	scanner     *scanning.Scanner
	jobs        *scanning.JobRunner
	engine      *merging.Engine
	suggestions *suggestions.Service
	recorder    *audit.Recorder
	logger      ectologger.Logger
}

// NewService creates a new resolution service
func NewService(
	stores repositories.Stores,
	scanner *scanning.Scanner,
	jobs *scanning.JobRunner,
	engine *merging.Engine,
	suggestionService *suggestions.Service,
	recorder *audit.Recorder,
	logger ectologger.Logger,
) *Service {
	return &Service{
		stores:      stores,
		scanner:     scanner,
		jobs:        jobs,
		engine:      engine,
		suggestions: suggestionService,
		recorder:    recorder,
		logger:      logger,
	}
}

// ScanDuplicates returns ranked duplicate clusters for the approved population of kind
func (s *Service) ScanDuplicates(ctx context.Context, orgID string, kind models.EntityKind) (*models.ScanResult, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.scanner.Scan(ctx, orgID, kind)
}

// FindDuplicatesFor returns the likely duplicates of one entity
func (s *Service) FindDuplicatesFor(ctx context.Context, orgID string, kind models.EntityKind, entityID string) ([]models.Candidate, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(entityID) == "" {
		return nil, repositories.BadRequest("entity id is required")
	}
	return s.scanner.FindDuplicatesFor(ctx, orgID, kind, entityID)
}

// MergeEntities absorbs mergeID into keepID
func (s *Service) MergeEntities(ctx context.Context, kind models.EntityKind, orgID, actorID, keepID, mergeID string) (*models.MergeSummary, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	req := merging.MergeRequest{OrgID: orgID, ActorID: actorID, KeepID: keepID, MergeID: mergeID}
	switch kind {
	case models.EntityKindContact:
		return s.engine.Merge(ctx, req)
	case models.EntityKindCompany:
		return s.engine.MergeCompany(ctx, req)
	}
	return nil, repositories.BadRequest("unknown entity kind %q", kind)
}

// MergeAndApprove folds a pending record into an approved one
func (s *Service) MergeAndApprove(ctx context.Context, kind models.EntityKind, orgID, actorID, pendingID, mergeIntoID string) (*models.MergeSummary, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.engine.MergeAndApprove(ctx, kind, orgID, actorID, pendingID, mergeIntoID)
}

// DismissDuplicate records that two entities were reviewed and are not the
// same identity. Nothing but the audit log changes.
func (s *Service) DismissDuplicate(ctx context.Context, kind models.EntityKind, orgID, actorID, idA, idB string) (*DismissResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Service.DismissDuplicate")
	defer span.End()

	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	store := s.stores.Entities(kind)
	if store == nil {
		return nil, repositories.BadRequest("unknown entity kind %q", kind)
	}
	if strings.TrimSpace(idA) == "" || strings.TrimSpace(idB) == "" {
		return nil, repositories.BadRequest("both entity ids are required")
	}
	if idA == idB {
		return nil, repositories.BadRequest("cannot dismiss an entity as a duplicate of itself")
	}

	a, err := store.GetByID(ctx, orgID, idA)
	if err != nil {
		return nil, err
	}
	b, err := store.GetByID(ctx, orgID, idB)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Dismissed %s as not a duplicate of %s", b.Name, a.Name)
	_, err = s.recorder.Record(ctx, audit.Entry{
		OrgID:      orgID,
		UserID:     actorID,
		Action:     models.AuditActionDismissDuplicate,
		EntityType: string(kind),
		EntityID:   a.ID,
		EntityName: a.Name,
		Details:    message,
		Metadata: map[string]any{
			"dismissed_id":   b.ID,
			"dismissed_name": b.Name,
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": kind,
		"id_a": a.ID,
		"id_b": b.ID,
	}).Info("Dismissed duplicate pair")

	return &DismissResult{Success: true, Message: message}, nil
}

// CreateSuggestion stages a suggestion for review
func (s *Service) CreateSuggestion(ctx context.Context, orgID string, req suggestions.CreateRequest) (*models.PendingSuggestion, bool, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, false, err
	}
	return s.suggestions.Create(ctx, orgID, req)
}

// ListPendingSuggestions returns pending suggestions with display names resolved
func (s *Service) ListPendingSuggestions(ctx context.Context, orgID string, filter models.SuggestionFilter) ([]models.SuggestionView, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.suggestions.ListPending(ctx, orgID, filter)
}

// ApproveSuggestion applies a pending suggestion
func (s *Service) ApproveSuggestion(ctx context.Context, orgID, actorID, id string) (*models.ReviewResult, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.suggestions.Approve(ctx, orgID, actorID, id)
}

// RejectSuggestion closes a pending suggestion without applying it
func (s *Service) RejectSuggestion(ctx context.Context, orgID, actorID, id string) (*models.ReviewResult, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.suggestions.Reject(ctx, orgID, actorID, id)
}

// BulkApprove approves every pending suggestion in ids
func (s *Service) BulkApprove(ctx context.Context, orgID, actorID string, ids []string) (*models.BulkResult, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.suggestions.BulkApprove(ctx, orgID, actorID, ids)
}

// BulkReject rejects every pending suggestion in ids
func (s *Service) BulkReject(ctx context.Context, orgID, actorID string, ids []string) (*models.BulkResult, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.suggestions.BulkReject(ctx, orgID, actorID, ids)
}

// StartScanJob runs a scan in the background
func (s *Service) StartScanJob(ctx context.Context, orgID, actorID string, kind models.EntityKind) (*models.ScanJob, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.jobs.Start(ctx, orgID, actorID, kind)
}

// GetScanJob returns a scan job and, once finished, its clusters
func (s *Service) GetScanJob(ctx context.Context, orgID, jobID string) (*models.ScanJob, error) {
	return s.jobs.Get(ctx, orgID, jobID)
}

// CancelScanJob stops a running scan job
func (s *Service) CancelScanJob(ctx context.Context, orgID, jobID string) error {
	return s.jobs.Cancel(ctx, orgID, jobID)
}

// ListAliases returns the historical names of a canonical entity
func (s *Service) ListAliases(ctx context.Context, orgID, entityID string) ([]models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Service.ListAliases")
	defer span.End()

	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.stores.Aliases.ListByCanonical(ctx, orgID, entityID)
}

// DeleteAlias removes one alias
func (s *Service) DeleteAlias(ctx context.Context, orgID, aliasID string) error {
	ctx, span := tracing.StartSpan(ctx, "resolution.Service.DeleteAlias")
	defer span.End()

	if err := requireOrg(orgID); err != nil {
		return err
	}
	return s.stores.Aliases.Delete(ctx, orgID, aliasID)
}

// ListActivity returns audit log entries, newest first
func (s *Service) ListActivity(ctx context.Context, orgID string, filter models.AuditFilter) ([]models.AuditEntry, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return s.recorder.List(ctx, orgID, filter)
}

// Shutdown cancels running scan jobs and waits for them to record their state
func (s *Service) Shutdown(ctx context.Context) error {
	return s.jobs.Shutdown(ctx)
}

func requireOrg(orgID string) error {
	if strings.TrimSpace(orgID) == "" {
		return repositories.BadRequest("org id is required")
	}
	return nil
}
