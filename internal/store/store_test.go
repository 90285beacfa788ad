package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"reorder-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(period, medication, purchaseDate string) models.OrderRecord {
	return models.OrderRecord{
		SourceFile:          "test.csv",
		ContentHash:         HashKey(period, medication, purchaseDate),
		OrderPeriod:         period,
		PeriodNumber:        models.MonthNumber(period),
		Medication:          medication,
		Quantity:            100,
		PurchaseDate:        purchaseDate,
		ExpirationDate:      "2026-06-01",
		QuantityUsed:        80,
		AvgDailyConsumption: 2.5,
	}
}

func TestHashKeyNormalization(t *testing.T) {
	// Same natural key after normalization yields the same digest.
	assert.Equal(t,
		HashKey("January", "Paracetamol", "2025-01-05"),
		HashKey("  jANUARY ", " Paracetamol ", "2025-01-05"))

	assert.NotEqual(t,
		HashKey("January", "Paracetamol", "2025-01-05"),
		HashKey("February", "Paracetamol", "2025-01-05"))
}

func TestInsertRecordOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("January", "Paracetamol", "2025-01-05")

	outcome, err := s.InsertRecord(ctx, &rec)
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, outcome)

	// Identical natural key is absorbed as a no-op, never an error.
	outcome, err = s.InsertRecord(ctx, &rec)
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyExists, outcome)

	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []models.OrderRecord{
		{OrderPeriod: "January", Medication: "Paracetamol", Quantity: 100,
			PurchaseDate: "2025-01-05", ExpirationDate: "2026-01-05",
			QuantityUsed: 80, AvgDailyConsumption: 2.5},
		{OrderPeriod: "February", Medication: "Paracetamol", Quantity: 110,
			PurchaseDate: "2025-02-05", ExpirationDate: "2026-02-05",
			QuantityUsed: 90, AvgDailyConsumption: 3.0},
	}

	inserted, skipped, err := s.Ingest(ctx, records, "orders.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, skipped)

	inserted, skipped, err = s.Ingest(ctx, records, "orders.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 2, skipped)

	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestDerivesPeriodNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []models.OrderRecord{
		{OrderPeriod: "April", Medication: "Ibuprofen", Quantity: 50,
			PurchaseDate: "2025-04-05", ExpirationDate: "2026-04-05",
			QuantityUsed: 40, AvgDailyConsumption: 1.5},
	}

	_, _, err := s.Ingest(ctx, records, "orders.csv")
	require.NoError(t, err)

	all, err := s.AllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 4, all[0].PeriodNumber)
	assert.Equal(t, "orders.csv", all[0].SourceFile)
	assert.NotEmpty(t, all[0].ContentHash)
}

func TestAllOrderedSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted deliberately out of order.
	for _, tc := range []struct{ period, med, date string }{
		{"March", "Zinc", "2025-03-05"},
		{"January", "Zinc", "2025-01-05"},
		{"February", "Aspirin", "2025-02-05"},
		{"January", "Aspirin", "2025-01-06"},
	} {
		rec := testRecord(tc.period, tc.med, tc.date)
		_, err := s.InsertRecord(ctx, &rec)
		require.NoError(t, err)
	}

	all, err := s.AllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	assert.Equal(t, "Aspirin", all[0].Medication)
	assert.Equal(t, 1, all[0].PeriodNumber)
	assert.Equal(t, "Aspirin", all[1].Medication)
	assert.Equal(t, 2, all[1].PeriodNumber)
	assert.Equal(t, "Zinc", all[2].Medication)
	assert.Equal(t, 1, all[2].PeriodNumber)
	assert.Equal(t, "Zinc", all[3].Medication)
	assert.Equal(t, 3, all[3].PeriodNumber)
}

func TestRecentRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, period := range []string{"January", "February", "March", "April", "May"} {
		rec := testRecord(period, "Paracetamol", fmt.Sprintf("2025-%02d-05", i+1))
		rec.QuantityUsed = (i + 1) * 10
		_, err := s.InsertRecord(ctx, &rec)
		require.NoError(t, err)
	}

	recent, err := s.RecentRecords(ctx, "Paracetamol", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	assert.Equal(t, 5, recent[0].PeriodNumber)
	assert.Equal(t, 4, recent[1].PeriodNumber)
	assert.Equal(t, 3, recent[2].PeriodNumber)
	assert.Equal(t, 50, recent[0].QuantityUsed)

	none, err := s.RecentRecords(ctx, "Unknown", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMedicationsAndLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct{ period, med, date, exp string }{
		{"January", "Zinc", "2025-01-05", "2026-01-01"},
		{"February", "Zinc", "2025-02-05", "2026-02-01"},
		{"January", "Aspirin", "2025-01-05", "2026-03-01"},
	} {
		rec := testRecord(tc.period, tc.med, tc.date)
		rec.ExpirationDate = tc.exp
		_, err := s.InsertRecord(ctx, &rec)
		require.NoError(t, err)
	}

	meds, err := s.Medications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Zinc"}, meds)

	// Latest expiration follows the most recent period.
	exp, err := s.LatestExpiration(ctx, "Zinc")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", exp)

	exp, err = s.LatestExpiration(ctx, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, "", exp)

	rec, err := s.GetByMedicationAndDate(ctx, "Aspirin", "2025-01-05")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", rec.Medication)

	_, err = s.GetByMedicationAndDate(ctx, "Aspirin", "2025-12-31")
	assert.Error(t, err)
}
