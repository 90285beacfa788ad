package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"reorder-service/internal/models"
)

// HashKey computes the content hash over the normalized natural key. The same
// (period, medication, purchase_date) always yields the same digest, which the
// UNIQUE constraint turns into an idempotency key.
func HashKey(orderPeriod, medication, purchaseDate string) string {
	key := fmt.Sprintf("%s|%s|%s",
		models.CanonicalMonth(orderPeriod),
		strings.TrimSpace(medication),
		strings.TrimSpace(purchaseDate))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// InsertRecord inserts one record, absorbing content-hash collisions as a
// no-op. The returned outcome distinguishes Inserted from AlreadyExists; a
// duplicate is never an error.
func (s *Store) InsertRecord(ctx context.Context, rec *models.OrderRecord) (models.InsertOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO order_records
			(source_file, content_hash, order_period, period_number,
			 medication, quantity, purchase_date, expiration_date,
			 quantity_used, avg_daily_consumption)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		rec.SourceFile, rec.ContentHash, rec.OrderPeriod, rec.PeriodNumber,
		rec.Medication, rec.Quantity, rec.PurchaseDate, rec.ExpirationDate,
		rec.QuantityUsed, rec.AvgDailyConsumption)
	if err != nil {
		return models.AlreadyExists, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return models.AlreadyExists, err
	}
	if affected == 0 {
		return models.AlreadyExists, nil
	}
	return models.Inserted, nil
}

// Ingest inserts a batch of validated records in one transaction, deriving
// each record's content hash and period number. Returns how many records were
// new and how many were absorbed as duplicates.
func (s *Store) Ingest(ctx context.Context, records []models.OrderRecord, sourceFile string) (inserted, skipped int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range records {
		rec := records[i]
		rec.SourceFile = sourceFile
		rec.ContentHash = HashKey(rec.OrderPeriod, rec.Medication, rec.PurchaseDate)
		rec.PeriodNumber = models.MonthNumber(rec.OrderPeriod)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_records
				(source_file, content_hash, order_period, period_number,
				 medication, quantity, purchase_date, expiration_date,
				 quantity_used, avg_daily_consumption)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(content_hash) DO NOTHING`,
			rec.SourceFile, rec.ContentHash, rec.OrderPeriod, rec.PeriodNumber,
			rec.Medication, rec.Quantity, rec.PurchaseDate, rec.ExpirationDate,
			rec.QuantityUsed, rec.AvgDailyConsumption)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert record: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, err
		}
		if affected == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}
	return inserted, skipped, nil
}

// AllOrdered retrieves every record sorted by (medication, period_number)
// ascending, with insertion order as the deterministic tie-break.
func (s *Store) AllOrdered(ctx context.Context) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT * FROM order_records
		ORDER BY medication, period_number, id`)
	return records, err
}

// RecentRecords retrieves the most recent n records for a medication by
// descending period number (newest insertion first on ties).
func (s *Store) RecentRecords(ctx context.Context, medication string, n int) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT * FROM order_records
		WHERE medication = ?
		ORDER BY period_number DESC, id DESC
		LIMIT ?`,
		medication, n)
	return records, err
}

// GetByMedicationAndDate looks up a record by its (medication, purchase_date)
// pair.
func (s *Store) GetByMedicationAndDate(ctx context.Context, medication, purchaseDate string) (*models.OrderRecord, error) {
	var rec models.OrderRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT * FROM order_records
		WHERE medication = ? AND purchase_date = ?
		ORDER BY id
		LIMIT 1`,
		medication, purchaseDate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %s on %s", medication, purchaseDate)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Medications retrieves every distinct medication in enumeration order.
func (s *Store) Medications(ctx context.Context) ([]string, error) {
	var medications []string
	err := s.db.SelectContext(ctx, &medications, `
		SELECT DISTINCT medication FROM order_records ORDER BY medication`)
	return medications, err
}

// LatestExpiration returns the expiration date of the medication's most recent
// record, or "" when the medication has no history.
func (s *Store) LatestExpiration(ctx context.Context, medication string) (string, error) {
	var expiration string
	err := s.db.GetContext(ctx, &expiration, `
		SELECT expiration_date FROM order_records
		WHERE medication = ?
		ORDER BY period_number DESC, id DESC
		LIMIT 1`,
		medication)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return expiration, nil
}

// CountRecords returns the total number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM order_records")
	return count, err
}
