package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Suggestions is the pending_suggestions table
type Suggestions struct {
	store *Store
}

func (s *Suggestions) Create(ctx context.Context, suggestion *models.PendingSuggestion) error {
	defer s.store.lockWrite(ctx)()

	if suggestion.Status == "" {
		suggestion.Status = models.SuggestionStatusPending
	}
	if suggestion.Status == models.SuggestionStatusPending {
		for _, existing := range s.store.suggestions {
			if existing.OrgID == suggestion.OrgID && existing.Status == models.SuggestionStatusPending &&
				existing.Type == suggestion.Type && existing.TargetID() == suggestion.TargetID() {
				return repositories.InvalidState("a pending %s suggestion already exists for %s", suggestion.Type, suggestion.TargetID())
			}
		}
	}

	if suggestion.ID == "" {
		suggestion.ID = uuid.New().String()
	}
	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now().UTC()
	}
	c := *suggestion
	s.store.suggestions[c.ID] = &c
	return nil
}

func (s *Suggestions) Get(_ context.Context, orgID, id string) (*models.PendingSuggestion, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	sg, ok := s.store.suggestions[id]
	if !ok || sg.OrgID != orgID {
		return nil, repositories.NotFound("suggestion %s not found", id)
	}
	c := *sg
	return &c, nil
}

func (s *Suggestions) FindPending(_ context.Context, orgID string, suggestionType models.SuggestionType, targetID string) (*models.PendingSuggestion, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	for _, sg := range s.store.suggestions {
		if sg.OrgID == orgID && sg.Status == models.SuggestionStatusPending && sg.Type == suggestionType && sg.TargetID() == targetID {
			c := *sg
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Suggestions) ListPending(_ context.Context, orgID string, filter models.SuggestionFilter) ([]models.PendingSuggestion, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	out := make([]models.PendingSuggestion, 0)
	for _, sg := range s.store.suggestions {
		if sg.OrgID != orgID || sg.Status != models.SuggestionStatusPending {
			continue
		}
		if filter.Type != "" && sg.Type != filter.Type {
			continue
		}
		if filter.ContactID != "" && deref(sg.ContactID) != filter.ContactID {
			continue
		}
		if filter.CompanyID != "" && deref(sg.CompanyID) != filter.CompanyID {
			continue
		}
		out = append(out, *sg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Suggestions) MarkReviewed(ctx context.Context, orgID, id string, status models.SuggestionStatus, reviewerID string, reviewedAt time.Time) error {
	defer s.store.lockWrite(ctx)()

	sg, ok := s.store.suggestions[id]
	if !ok || sg.OrgID != orgID {
		return repositories.NotFound("suggestion %s not found", id)
	}
	if sg.Status != models.SuggestionStatusPending {
		return repositories.InvalidState("suggestion %s is already %s", id, sg.Status)
	}
	sg.Status = status
	sg.ReviewedAt = &reviewedAt
	sg.ReviewedBy = &reviewerID
	return nil
}
