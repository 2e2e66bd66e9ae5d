// Package suggestions stages machine-proposed changes for human review and
// applies them once approved
package suggestions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/validation"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Config tunes the suggestion service
type Config struct {
	BulkLimit int
}

// DefaultConfig returns the standard limits
func DefaultConfig() Config {
	return Config{BulkLimit: 200}
}

// ReviewObserver is notified after a review decision commits
type ReviewObserver interface {
	OnSuggestionReviewed(ctx context.Context, event *models.SuggestionEvent) error
}

// CreateRequest stages one suggestion
type CreateRequest struct {
	Type               models.SuggestionType `json:"type" validate:"required"`
	ContactID          string                `json:"contact_id"`
	CompanyID          string                `json:"company_id"`
	SuggestedCompanyID string                `json:"suggested_company_id"`
	Patch              map[string]string     `json:"patch"`
	Reason             string                `json:"reason" validate:"max=2000"`
	Confidence         int                   `json:"confidence" validate:"gte=0,lte=100"`
}

// Service manages the suggestion lifecycle
type Service struct {
	stores    repositories.Stores
	recorder  *audit.Recorder
	cfg       Config
	logger    ectologger.Logger
	observers []ReviewObserver
}

// NewService creates a new suggestion service
func NewService(stores repositories.Stores, recorder *audit.Recorder, cfg Config, logger ectologger.Logger, observers ...ReviewObserver) *Service {
	if cfg.BulkLimit <= 0 {
		cfg.BulkLimit = DefaultConfig().BulkLimit
	}
	return &Service{
		stores:    stores,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
		observers: observers,
	}
}

// Create stages a suggestion. When a pending suggestion of the same type
// already targets the same entity, that suggestion is returned unchanged with
// created=false.
func (s *Service) Create(ctx context.Context, orgID string, req CreateRequest) (*models.PendingSuggestion, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Create")
	defer span.End()

	suggestion, err := s.build(ctx, orgID, req)
	if err != nil {
		return nil, false, err
	}

	var (
		out     *models.PendingSuggestion
		created bool
	)
	err = s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.stores.Suggestions.FindPending(ctx, orgID, suggestion.Type, suggestion.TargetID())
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}
		if err := s.stores.Suggestions.Create(ctx, suggestion); err != nil {
			return err
		}
		out, created = suggestion, true
		return nil
	})
	if repositories.IsInvalidState(err) {
		// lost a race with a concurrent create of the same suggestion
		existing, findErr := s.stores.Suggestions.FindPending(ctx, orgID, suggestion.Type, suggestion.TargetID())
		if findErr == nil && existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"suggestion_id": out.ID,
		"type":          out.Type,
		"target_id":     out.TargetID(),
		"created":       created,
	}).Info("Staged suggestion")
	return out, created, nil
}

// build validates the request and turns it into a pending suggestion
func (s *Service) build(ctx context.Context, orgID string, req CreateRequest) (*models.PendingSuggestion, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, repositories.BadRequest("unknown suggestion type %q", req.Type)
	}

	patch, err := models.NewPatch(req.Type.TargetKind(), req.Patch)
	if err != nil {
		return nil, repositories.BadRequest("%s", err.Error())
	}

	sg := &models.PendingSuggestion{
		OrgID:              orgID,
		Type:               req.Type,
		ContactID:          models.StringPtr(strings.TrimSpace(req.ContactID)),
		CompanyID:          models.StringPtr(strings.TrimSpace(req.CompanyID)),
		SuggestedCompanyID: models.StringPtr(strings.TrimSpace(req.SuggestedCompanyID)),
		SuggestedData:      patch,
		Reason:             strings.TrimSpace(req.Reason),
		Confidence:         req.Confidence,
		Status:             models.SuggestionStatusPending,
	}

	switch req.Type {
	case models.SuggestionTypeCompanyLink:
		if sg.ContactID == nil || sg.SuggestedCompanyID == nil {
			return nil, repositories.BadRequest("company_link suggestions need contact_id and suggested_company_id")
		}
		if _, err := s.stores.Contacts.GetByID(ctx, orgID, *sg.ContactID); err != nil {
			return nil, err
		}
		if _, err := s.stores.Companies.GetByID(ctx, orgID, *sg.SuggestedCompanyID); err != nil {
			return nil, err
		}
	case models.SuggestionTypeEnrichment, models.SuggestionTypeCompanyEnrichment:
		if sg.TargetID() == "" {
			return nil, repositories.BadRequest("%s suggestions need a %s id", req.Type, req.Type.TargetKind())
		}
		if patch.IsEmpty() {
			return nil, repositories.BadRequest("%s suggestions need at least one field", req.Type)
		}
		target, err := s.stores.Entities(req.Type.TargetKind()).GetByID(ctx, orgID, sg.TargetID())
		if err != nil {
			return nil, err
		}
		// only stage values that would actually fill an empty field
		r := models.Reconcile(target, patch.Fields)
		if len(r.Applied) == 0 {
			return nil, repositories.BadRequest("every suggested field is already populated on %s %s", target.Kind, target.ID)
		}
		sg.SuggestedData = patch.Without(r.Skipped...)
	}

	if sg.Type != models.SuggestionTypeCompanyEnrichment && sg.CompanyID != nil {
		if _, err := s.stores.Companies.GetByID(ctx, orgID, *sg.CompanyID); err != nil {
			return nil, err
		}
	}
	return sg, nil
}

// ListPending returns pending suggestions with linked names resolved
func (s *Service) ListPending(ctx context.Context, orgID string, filter models.SuggestionFilter) ([]models.SuggestionView, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.ListPending")
	defer span.End()

	if filter.Type != "" && !filter.Type.Valid() {
		return nil, repositories.BadRequest("unknown suggestion type %q", filter.Type)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	pending, err := s.stores.Suggestions.ListPending(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}

	names := newNameCache(s.stores, orgID)
	views := make([]models.SuggestionView, 0, len(pending))
	for _, sg := range pending {
		view := models.SuggestionView{PendingSuggestion: sg}
		if view.ContactName, err = names.lookup(ctx, models.EntityKindContact, sg.ContactID); err != nil {
			return nil, err
		}
		if view.CompanyName, err = names.lookup(ctx, models.EntityKindCompany, sg.CompanyID); err != nil {
			return nil, err
		}
		if view.SuggestedCompanyName, err = names.lookup(ctx, models.EntityKindCompany, sg.SuggestedCompanyID); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Approve applies a pending suggestion and marks it approved
func (s *Service) Approve(ctx context.Context, orgID, actorID, id string) (*models.ReviewResult, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Approve")
	defer span.End()

	var (
		result *models.ReviewResult
		event  *models.SuggestionEvent
	)
	err := s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		sg, err := s.loadPending(ctx, orgID, id)
		if err != nil {
			return err
		}
		p, err := s.prepare(ctx, orgID, sg)
		if err != nil {
			return err
		}
		reviewedAt, err := s.apply(ctx, orgID, actorID, p, models.SuggestionStatusApproved)
		if err != nil {
			return err
		}

		if _, err := s.recorder.Record(ctx, audit.Entry{
			OrgID:      orgID,
			UserID:     actorID,
			Action:     models.AuditActionApproveSuggestion,
			EntityType: string(p.target.Kind),
			EntityID:   p.target.ID,
			EntityName: p.target.Name,
			Details:    fmt.Sprintf("Approved %s suggestion", sg.Type),
			Metadata:   p.metadata(),
		}); err != nil {
			return err
		}

		result = &models.ReviewResult{
			Success:       true,
			Message:       approvalMessage(p),
			Suggestion:    p.suggestion,
			FieldsApplied: p.applied,
			FieldsSkipped: p.skipped,
		}
		event = &models.SuggestionEvent{OrgID: orgID, ActorID: actorID, Suggestion: p.suggestion, Applied: p.applied, ReviewedAt: reviewedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, event)
	return result, nil
}

// Reject marks a pending suggestion rejected without touching any entity
func (s *Service) Reject(ctx context.Context, orgID, actorID, id string) (*models.ReviewResult, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Reject")
	defer span.End()

	var (
		result *models.ReviewResult
		event  *models.SuggestionEvent
	)
	err := s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		sg, err := s.loadPending(ctx, orgID, id)
		if err != nil {
			return err
		}
		reviewedAt, err := s.markReviewed(ctx, orgID, actorID, sg, models.SuggestionStatusRejected)
		if err != nil {
			return err
		}

		kind := sg.Type.TargetKind()
		targetName := ""
		if target, err := s.stores.Entities(kind).GetByID(ctx, orgID, sg.TargetID()); err == nil {
			targetName = target.Name
		} else if !repositories.IsNotFound(err) {
			return err
		}

		if _, err := s.recorder.Record(ctx, audit.Entry{
			OrgID:      orgID,
			UserID:     actorID,
			Action:     models.AuditActionRejectSuggestion,
			EntityType: string(kind),
			EntityID:   sg.TargetID(),
			EntityName: targetName,
			Details:    fmt.Sprintf("Rejected %s suggestion", sg.Type),
			Metadata: map[string]any{
				"suggestion_id": sg.ID,
				"type":          string(sg.Type),
			},
		}); err != nil {
			return err
		}

		result = &models.ReviewResult{Success: true, Message: "Suggestion rejected", Suggestion: sg}
		event = &models.SuggestionEvent{OrgID: orgID, ActorID: actorID, Suggestion: sg, ReviewedAt: reviewedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, event)
	return result, nil
}

// BulkApprove approves every pending suggestion in ids, skipping ids that are
// missing, no longer pending or whose targets have disappeared
func (s *Service) BulkApprove(ctx context.Context, orgID, actorID string, ids []string) (*models.BulkResult, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.BulkApprove")
	defer span.End()

	return s.bulk(ctx, orgID, actorID, ids, models.SuggestionStatusApproved)
}

// BulkReject rejects every pending suggestion in ids, skipping ids that are
// missing or no longer pending
func (s *Service) BulkReject(ctx context.Context, orgID, actorID string, ids []string) (*models.BulkResult, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.BulkReject")
	defer span.End()

	return s.bulk(ctx, orgID, actorID, ids, models.SuggestionStatusRejected)
}

func (s *Service) bulk(ctx context.Context, orgID, actorID string, ids []string, status models.SuggestionStatus) (*models.BulkResult, error) {
	if err := s.validateIDs(ids); err != nil {
		return nil, err
	}

	result := &models.BulkResult{Requested: len(ids), Skipped: []string{}}
	var events []*models.SuggestionEvent

	err := s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			sg, err := s.loadPending(ctx, orgID, id)
			if isSkippable(err) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if err != nil {
				return err
			}

			var (
				applied    []models.Field
				reviewedAt time.Time
			)
			if status == models.SuggestionStatusApproved {
				p, err := s.prepare(ctx, orgID, sg)
				if isSkippable(err) {
					result.Skipped = append(result.Skipped, id)
					continue
				}
				if err != nil {
					return err
				}
				if reviewedAt, err = s.apply(ctx, orgID, actorID, p, status); err != nil {
					return err
				}
				sg, applied = p.suggestion, p.applied
			} else if reviewedAt, err = s.markReviewed(ctx, orgID, actorID, sg, status); err != nil {
				return err
			}

			result.Succeeded++
			events = append(events, &models.SuggestionEvent{OrgID: orgID, ActorID: actorID, Suggestion: sg, Applied: applied, ReviewedAt: reviewedAt})
		}

		action, verb := models.AuditActionBulkApproveSuggestions, "Approved"
		if status == models.SuggestionStatusRejected {
			action, verb = models.AuditActionBulkRejectSuggestions, "Rejected"
		}
		_, err := s.recorder.Record(ctx, audit.Entry{
			OrgID:      orgID,
			UserID:     actorID,
			Action:     action,
			EntityType: "suggestion",
			EntityName: fmt.Sprintf("%d suggestions", result.Succeeded),
			Details:    fmt.Sprintf("%s %d of %d suggestions", verb, result.Succeeded, result.Requested),
			Metadata: map[string]any{
				"requested":      result.Requested,
				"succeeded":      result.Succeeded,
				"skipped":        result.Skipped,
				"suggestion_ids": ids,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.notify(ctx, event)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"org_id":    orgID,
		"status":    status,
		"requested": result.Requested,
		"succeeded": result.Succeeded,
		"skipped":   len(result.Skipped),
	}).Info("Bulk suggestion review complete")
	return result, nil
}

func (s *Service) validateIDs(ids []string) error {
	if len(ids) == 0 {
		return repositories.BadRequest("ids must not be empty")
	}
	if len(ids) > s.cfg.BulkLimit {
		return repositories.BadRequest("at most %d ids can be reviewed at once, got %d", s.cfg.BulkLimit, len(ids))
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return repositories.BadRequest("ids[%d] is blank", i)
		}
	}
	return nil
}

func (s *Service) loadPending(ctx context.Context, orgID, id string) (*models.PendingSuggestion, error) {
	sg, err := s.stores.Suggestions.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if sg.Status != models.SuggestionStatusPending {
		return nil, repositories.InvalidState("suggestion %s is already %s", id, sg.Status)
	}
	return sg, nil
}

func (s *Service) markReviewed(ctx context.Context, orgID, actorID string, sg *models.PendingSuggestion, status models.SuggestionStatus) (time.Time, error) {
	reviewedAt := time.Now().UTC()
	if err := s.stores.Suggestions.MarkReviewed(ctx, orgID, sg.ID, status, actorID, reviewedAt); err != nil {
		return time.Time{}, err
	}
	sg.Status = status
	sg.ReviewedAt = &reviewedAt
	sg.ReviewedBy = &actorID
	return reviewedAt, nil
}

func (s *Service) notify(ctx context.Context, event *models.SuggestionEvent) {
	for _, o := range s.observers {
		if err := o.OnSuggestionReviewed(ctx, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("suggestion_id", event.Suggestion.ID).Warn("Suggestion observer failed")
		}
	}
}

func isSkippable(err error) bool {
	return repositories.IsNotFound(err) || repositories.IsInvalidState(err)
}

func approvalMessage(p *plan) string {
	if len(p.skipped) == 0 {
		return "Suggestion approved"
	}
	return fmt.Sprintf("Suggestion approved; %d field(s) were already populated and left unchanged", len(p.skipped))
}
