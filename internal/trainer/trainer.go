// Package trainer fits the global demand model and manages the persisted
// model artifact. One model covers all medications; each run replaces the
// previous artifact (no versioning, no rollback).
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reorder-service/internal/features"
	"reorder-service/internal/store"
	"reorder-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyHistory means training was attempted against an empty store.
var ErrEmptyHistory = errors.New("no order history in store, run ingestion first")

// Fixed operating point; the seed keeps runs reproducible.
var defaultParams = GBParams{
	NEstimators:  200,
	MaxDepth:     4,
	LearningRate: 0.1,
	Subsample:    0.8,
	Seed:         42,
}

// Trainer trains the demand model from stored history.
type Trainer struct {
	store    *store.Store
	modelDir string
	logger   *zap.Logger
}

// NewTrainer creates a trainer writing artifacts under modelDir.
func NewTrainer(st *store.Store, modelDir string) *Trainer {
	return &Trainer{
		store:    st,
		modelDir: modelDir,
		logger:   util.GetLogger(),
	}
}

// Result summarizes one training run. The error metrics are in-sample and
// for observability only; they never gate artifact persistence.
type Result struct {
	RunID    string  `json:"run_id"`
	Samples  int     `json:"samples"`
	Features int     `json:"features"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2"`
}

// Train builds the feature matrix over all stored history, fits the model
// and persists the artifact pair, overwriting any prior artifact.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Trainer.Train")
	defer span.End()

	start := time.Now()
	runID := uuid.New().String()

	records, err := t.store.AllOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyHistory
	}

	matrix, err := features.Build(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build feature matrix: %w", err)
	}

	t.logger.Info("Training demand model",
		zap.String("run_id", runID),
		zap.Int("samples", len(matrix.Rows)),
		zap.Int("features", len(matrix.Columns)))

	model, err := FitGB(matrix.Rows, matrix.Target, defaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}

	preds := make([]float64, len(matrix.Rows))
	for i, row := range matrix.Rows {
		preds[i] = model.Predict(row)
	}
	mae := meanAbsoluteError(matrix.Target, preds)
	r2 := rSquared(matrix.Target, preds)

	artifact := &Artifact{Model: model, Columns: matrix.Columns}
	if err := artifact.Save(t.modelDir); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	util.TrainingRunsTotal.Inc()
	util.TrainingDuration.Observe(duration.Seconds())
	util.TrainingMAE.Set(mae)

	t.logger.Info("Model trained and saved",
		zap.String("run_id", runID),
		zap.String("model_dir", t.modelDir),
		zap.Float64("in_sample_mae", mae),
		zap.Float64("in_sample_r2", r2),
		zap.Duration("duration", duration))

	return &Result{
		RunID:    runID,
		Samples:  len(matrix.Rows),
		Features: len(matrix.Columns),
		MAE:      mae,
		R2:       r2,
	}, nil
}
