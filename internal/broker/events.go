package broker

import (
	"context"
	"time"

	"reorder-service/internal/models"
	"reorder-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes pipeline lifecycle events. The service is
// publish-only: nothing in this process consumes the topic. A nil publisher
// is valid and drops every event, so callers never need to branch on whether
// eventing is configured.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		logger:   util.GetLogger(),
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (ep *EventPublisher) publish(ctx context.Context, key string, event interface{}) {
	if ep == nil || ep.producer == nil {
		return
	}
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		// Eventing is best-effort observability; a broker outage must not
		// fail the pipeline operation.
		ep.logger.Warn("Failed to publish event",
			zap.String("key", key),
			zap.Error(err))
	}
}

// PublishDataIngested publishes a DataIngested event
func (ep *EventPublisher) PublishDataIngested(ctx context.Context, sourceFile string, inserted, skipped int) {
	ep.publish(ctx, "ingest-"+sourceFile, &models.DataIngestedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeDataIngested),
		SourceFile: sourceFile,
		Inserted:   inserted,
		Skipped:    skipped,
	})
}

// PublishModelTrained publishes a ModelTrained event
func (ep *EventPublisher) PublishModelTrained(ctx context.Context, runID string, samples, featureCount int, mae, r2 float64) {
	ep.publish(ctx, "train-"+runID, &models.ModelTrainedEvent{
		BaseEvent: newBaseEvent(models.EventTypeModelTrained),
		RunID:     runID,
		Samples:   samples,
		Features:  featureCount,
		MAE:       mae,
		R2:        r2,
	})
}

// PublishRecommendationsGenerated publishes a RecommendationsGenerated event
func (ep *EventPublisher) PublishRecommendationsGenerated(ctx context.Context, targetPeriod string, medications int) {
	ep.publish(ctx, "recommend-"+targetPeriod, &models.RecommendationsGeneratedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeRecommendationsGenerated),
		TargetPeriod: targetPeriod,
		Medications:  medications,
	})
}
