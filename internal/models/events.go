package models

import "time"

// Event types
const (
	EventTypeDataIngested             = "DATA_INGESTED"
	EventTypeModelTrained             = "MODEL_TRAINED"
	EventTypeRecommendationsGenerated = "RECOMMENDATIONS_GENERATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DataIngestedEvent published after a CSV batch is ingested
type DataIngestedEvent struct {
	BaseEvent
	SourceFile string `json:"source_file"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
}

// ModelTrainedEvent published after a training run replaces the artifact
type ModelTrainedEvent struct {
	BaseEvent
	RunID    string  `json:"run_id"`
	Samples  int     `json:"samples"`
	Features int     `json:"features"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2"`
}

// RecommendationsGeneratedEvent published after a recommendation request
type RecommendationsGeneratedEvent struct {
	BaseEvent
	TargetPeriod string `json:"target_period"`
	Medications  int    `json:"medications"`
}
