// Package features derives the model's input matrix from stored order
// records and owns the canonical feature-column contract. The exact ordered
// column list produced here is persisted next to the trained model and reused
// verbatim at inference time.
package features

import (
	"errors"
	"sort"

	"reorder-service/internal/models"
)

// ErrNoRecords is returned when the store holds no history to featurize.
var ErrNoRecords = errors.New("no records in store, run ingestion first")

// BaseColumns are the non-indicator features, in canonical order.
var BaseColumns = []string{
	"period_number",
	"lag_1_used",
	"lag_1_ordered",
	"rolling_mean_3_used",
	"avg_daily_consumption",
}

const oneHotPrefix = "med_"

// OneHotColumn names the indicator column for a medication.
func OneHotColumn(medication string) string {
	return oneHotPrefix + medication
}

// Columns returns the canonical ordered feature-column list for a set of
// medications: the base columns followed by one-hot columns sorted
// lexicographically.
func Columns(medications []string) []string {
	oneHot := make([]string, 0, len(medications))
	for _, med := range medications {
		oneHot = append(oneHot, OneHotColumn(med))
	}
	sort.Strings(oneHot)
	return append(append([]string{}, BaseColumns...), oneHot...)
}

// Matrix is a training-ready feature matrix. Rows[i] is ordered exactly as
// Columns; Target[i] is the quantity_used the model learns to predict.
type Matrix struct {
	Columns []string
	Rows    [][]float64
	Target  []float64
}

// Build derives lag, rolling and one-hot features from records. The input
// must already be ordered by (medication, period_number) ascending with a
// deterministic tie-break, as Store.AllOrdered returns it. Lag and rolling
// windows never cross medication boundaries; a medication's first record
// self-fills with its own values.
func Build(records []models.OrderRecord) (*Matrix, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	medSet := make(map[string]struct{})
	for _, rec := range records {
		medSet[rec.Medication] = struct{}{}
	}
	medications := make([]string, 0, len(medSet))
	for med := range medSet {
		medications = append(medications, med)
	}
	columns := Columns(medications)

	matrix := &Matrix{
		Columns: columns,
		Rows:    make([][]float64, 0, len(records)),
		Target:  make([]float64, 0, len(records)),
	}

	// Per-medication trailing window of quantity_used, max 3 entries.
	var (
		currentMed string
		prev       *models.OrderRecord
		window     []float64
	)

	for i := range records {
		rec := records[i]
		if rec.Medication != currentMed {
			currentMed = rec.Medication
			prev = nil
			window = window[:0]
		}

		row := RowValues{
			Medication:          rec.Medication,
			PeriodNumber:        float64(rec.PeriodNumber),
			AvgDailyConsumption: rec.AvgDailyConsumption,
		}
		if prev == nil {
			row.Lag1Used = float64(rec.QuantityUsed)
			row.Lag1Ordered = float64(rec.Quantity)
			row.RollingMean3Used = float64(rec.QuantityUsed)
		} else {
			row.Lag1Used = float64(prev.QuantityUsed)
			row.Lag1Ordered = float64(prev.Quantity)
			row.RollingMean3Used = mean(window)
		}

		matrix.Rows = append(matrix.Rows, AlignRow(row.Named(), columns))
		matrix.Target = append(matrix.Target, float64(rec.QuantityUsed))

		prev = &records[i]
		window = append(window, float64(rec.QuantityUsed))
		if len(window) > 3 {
			window = window[1:]
		}
	}

	return matrix, nil
}

// RowValues holds one feature row before alignment.
type RowValues struct {
	Medication          string
	PeriodNumber        float64
	Lag1Used            float64
	Lag1Ordered         float64
	RollingMean3Used    float64
	AvgDailyConsumption float64
}

// Named maps the row onto column names, including the medication's own
// one-hot indicator.
func (r RowValues) Named() map[string]float64 {
	return map[string]float64{
		"period_number":           r.PeriodNumber,
		"lag_1_used":              r.Lag1Used,
		"lag_1_ordered":           r.Lag1Ordered,
		"rolling_mean_3_used":     r.RollingMean3Used,
		"avg_daily_consumption":   r.AvgDailyConsumption,
		OneHotColumn(r.Medication): 1,
	}
}

// AlignRow projects named values onto an ordered manifest, producing a
// fixed-width vector. Manifest columns absent from the row are zero-filled;
// values for names outside the manifest are dropped.
func AlignRow(values map[string]float64, manifest []string) []float64 {
	row := make([]float64, len(manifest))
	for i, col := range manifest {
		row[i] = values[col]
	}
	return row
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
