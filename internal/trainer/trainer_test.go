package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"reorder-service/internal/models"
	"reorder-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()

	X := [][]float64{{1, 0}, {2, 0}, {3, 0}, {4, 0}}
	y := []float64{10, 20, 30, 40}
	model, err := FitGB(X, y, GBParams{NEstimators: 30, MaxDepth: 2, LearningRate: 0.1, Subsample: 1.0, Seed: 42})
	require.NoError(t, err)

	artifact := &Artifact{Model: model, Columns: []string{"x", "med_A"}}
	require.NoError(t, artifact.Save(dir))

	loaded, err := LoadArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, artifact.Columns, loaded.Columns)

	for i := range X {
		assert.Equal(t, model.Predict(X[i]), loaded.Model.Predict(X[i]))
	}
}

func TestLoadArtifactMissing(t *testing.T) {
	_, err := LoadArtifact(t.TempDir())
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestTrainEmptyHistory(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()

	tr := NewTrainer(s, t.TempDir())
	_, err = tr.Train(context.Background())
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestTrainPersistsArtifactPair(t *testing.T) {
	tmp := t.TempDir()
	s, err := store.NewStore(filepath.Join(tmp, "orders.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	var records []models.OrderRecord
	for _, med := range []string{"Aspirin", "Zinc"} {
		for m := 1; m <= 12; m++ {
			records = append(records, models.OrderRecord{
				OrderPeriod:         models.MonthNames[m-1],
				Medication:          med,
				Quantity:            100 + m,
				PurchaseDate:        fmt.Sprintf("2025-%02d-05", m),
				ExpirationDate:      fmt.Sprintf("2026-%02d-05", m),
				QuantityUsed:        80 + m*2,
				AvgDailyConsumption: 2.5,
			})
		}
	}
	_, _, err = s.Ingest(ctx, records, "orders.csv")
	require.NoError(t, err)

	modelDir := filepath.Join(tmp, "models")
	tr := NewTrainer(s, modelDir)

	result, err := tr.Train(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 24, result.Samples)
	// 5 base columns + one indicator per medication.
	assert.Equal(t, 7, result.Features)
	assert.GreaterOrEqual(t, result.MAE, 0.0)

	artifact, err := LoadArtifact(modelDir)
	require.NoError(t, err)
	assert.Len(t, artifact.Columns, result.Features)
	assert.Contains(t, artifact.Columns, "med_Aspirin")
	assert.Contains(t, artifact.Columns, "med_Zinc")

	// A second run replaces the artifact wholesale.
	result2, err := tr.Train(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, result.RunID, result2.RunID)
}
