// Package events turns committed resolution decisions into Kafka events
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeEntityMerged       EventType = "entity.merged"
	EventTypeSuggestionApproved EventType = "suggestion.approved"
	EventTypeSuggestionRejected EventType = "suggestion.rejected"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	OrgID         string    `json:"org_id"`
	ActorID       string    `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// EntityMergedEvent is emitted when one record is absorbed into another
type EntityMergedEvent struct {
	BaseEvent
	EntityType        string         `json:"entity_type"`
	KeepID            string         `json:"keep_id"`
	MergeID           string         `json:"merge_id"`
	MergeName         string         `json:"merge_name"`
	FieldsTransferred []models.Field `json:"fields_transferred"`
	EdgesMoved        int            `json:"edges_moved"`
	EdgesDeduplicated int            `json:"edges_deduplicated"`
	PartialFailure    bool           `json:"partial_failure"`
}

// SuggestionReviewedEvent is emitted when a suggestion is approved or rejected
type SuggestionReviewedEvent struct {
	BaseEvent
	SuggestionID   string                `json:"suggestion_id"`
	SuggestionType models.SuggestionType `json:"suggestion_type"`
	EntityType     string                `json:"entity_type"`
	EntityID       string                `json:"entity_id"`
	FieldsApplied  []models.Field        `json:"fields_applied,omitempty"`
}

// Publisher sends one message to the broker
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Emitter handles event emission for Clover
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

func newBaseEvent(eventType EventType, orgID, actorID string, at time.Time) BaseEvent {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: kafka.SchemaVersion,
		OrgID:         orgID,
		ActorID:       actorID,
		Timestamp:     at,
	}
}

// OnMerge emits an entity.merged event
func (e *Emitter) OnMerge(ctx context.Context, merge *models.MergeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.OnMerge")
	defer span.End()

	event := &EntityMergedEvent{
		BaseEvent:         newBaseEvent(EventTypeEntityMerged, merge.OrgID, merge.ActorID, merge.MergedAt),
		EntityType:        string(merge.Kind),
		KeepID:            merge.KeepID,
		MergeID:           merge.MergeID,
		MergeName:         merge.MergeName,
		FieldsTransferred: merge.Summary.FieldsTransferred,
		EdgesMoved:        merge.Summary.Edges.Moved,
		EdgesDeduplicated: merge.Summary.Edges.Deduplicated,
		PartialFailure:    merge.Summary.PartialFailure,
	}

	if err := e.publisher.Publish(ctx, kafka.Message{
		Key:       merge.KeepID,
		EventType: string(event.EventType),
		OrgID:     merge.OrgID,
		Payload:   event,
	}); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.merged event")
		return err
	}
	return nil
}

// OnSuggestionReviewed emits a suggestion.approved or suggestion.rejected event
func (e *Emitter) OnSuggestionReviewed(ctx context.Context, review *models.SuggestionEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.OnSuggestionReviewed")
	defer span.End()

	eventType := EventTypeSuggestionApproved
	if review.Suggestion.Status == models.SuggestionStatusRejected {
		eventType = EventTypeSuggestionRejected
	}

	sg := review.Suggestion
	event := &SuggestionReviewedEvent{
		BaseEvent:      newBaseEvent(eventType, review.OrgID, review.ActorID, review.ReviewedAt),
		SuggestionID:   sg.ID,
		SuggestionType: sg.Type,
		EntityType:     string(sg.Type.TargetKind()),
		EntityID:       sg.TargetID(),
		FieldsApplied:  review.Applied,
	}

	if err := e.publisher.Publish(ctx, kafka.Message{
		Key:       sg.TargetID(),
		EventType: string(eventType),
		OrgID:     review.OrgID,
		Payload:   event,
	}); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	return nil
}
