// Package schema validates and normalizes raw tabular order history before it
// reaches the record store. The pipeline runs in a fixed order over the full
// record set: column presence, dtype coercion, date normalization, row
// cleaning. The first three stages reject the whole batch on failure; cleaning
// only drops rows and never errors.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"reorder-service/internal/models"
	"reorder-service/internal/util"

	"go.uber.org/zap"
)

// RequiredColumns must all be present in the input header.
var RequiredColumns = []string{
	"order_period",
	"medication",
	"quantity",
	"purchase_date",
	"expiration_date",
	"quantity_used",
	"avg_daily_consumption",
}

// ValidationError reports why a batch failed schema validation.
type ValidationError struct {
	Stage   string   // "columns", "dtype" or "dates"
	Columns []string // offending column names
	Row     int      // 1-based data row, 0 when not row-specific
	Reason  string
}

func (e *ValidationError) Error() string {
	switch e.Stage {
	case "columns":
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
	default:
		if e.Row > 0 {
			return fmt.Sprintf("%s validation failed for column %q at row %d: %s",
				e.Stage, e.Columns[0], e.Row, e.Reason)
		}
		return fmt.Sprintf("%s validation failed for column %q: %s",
			e.Stage, e.Columns[0], e.Reason)
	}
}

// DropStats counts rows removed by the cleaning stage.
type DropStats struct {
	NegativeValues int
	InvalidPeriod  int
}

func (d DropStats) Total() int { return d.NegativeValues + d.InvalidPeriod }

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func normalizeDate(value string) (string, error) {
	s := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparsable date %q", value)
}

// Validate runs the full pipeline and returns normalized records. Records are
// returned in input order; period numbers are not assigned here (the store
// derives them on insert).
func Validate(header []string, rows [][]string, logger *zap.Logger) ([]models.OrderRecord, DropStats, error) {
	if logger == nil {
		logger = util.GetLogger()
	}

	colIndex, err := checkColumns(header)
	if err != nil {
		return nil, DropStats{}, err
	}

	records := make([]models.OrderRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := coerceRow(colIndex, row, i+1)
		if err != nil {
			return nil, DropStats{}, err
		}
		records = append(records, rec)
	}

	cleaned, stats := cleanRows(records, logger)
	return cleaned, stats, nil
}

// checkColumns verifies every required column is present, naming all missing
// ones at once.
func checkColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ValidationError{Stage: "columns", Columns: missing}
	}
	return index, nil
}

func coerceRow(colIndex map[string]int, row []string, rowNum int) (models.OrderRecord, error) {
	get := func(col string) string {
		idx := colIndex[col]
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	quantity, err := parseInt(get("quantity"))
	if err != nil {
		return models.OrderRecord{}, &ValidationError{
			Stage: "dtype", Columns: []string{"quantity"}, Row: rowNum, Reason: err.Error()}
	}
	quantityUsed, err := parseInt(get("quantity_used"))
	if err != nil {
		return models.OrderRecord{}, &ValidationError{
			Stage: "dtype", Columns: []string{"quantity_used"}, Row: rowNum, Reason: err.Error()}
	}
	avgDaily, err := strconv.ParseFloat(get("avg_daily_consumption"), 64)
	if err != nil {
		return models.OrderRecord{}, &ValidationError{
			Stage: "dtype", Columns: []string{"avg_daily_consumption"}, Row: rowNum,
			Reason: fmt.Sprintf("non-numeric value %q", get("avg_daily_consumption"))}
	}

	purchaseDate, err := normalizeDate(get("purchase_date"))
	if err != nil {
		return models.OrderRecord{}, &ValidationError{
			Stage: "dates", Columns: []string{"purchase_date"}, Row: rowNum, Reason: err.Error()}
	}
	expirationDate, err := normalizeDate(get("expiration_date"))
	if err != nil {
		return models.OrderRecord{}, &ValidationError{
			Stage: "dates", Columns: []string{"expiration_date"}, Row: rowNum, Reason: err.Error()}
	}

	return models.OrderRecord{
		OrderPeriod:         get("order_period"),
		Medication:          get("medication"),
		Quantity:            quantity,
		PurchaseDate:        purchaseDate,
		ExpirationDate:      expirationDate,
		QuantityUsed:        quantityUsed,
		AvgDailyConsumption: avgDaily,
	}, nil
}

func parseInt(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	// Accept integral floats like "12.0"; anything else is a dtype failure.
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", value)
	}
	return int(f), nil
}

// cleanRows drops rows with negative quantities or an unrecognized period
// name. It logs drop counts and never errors.
func cleanRows(records []models.OrderRecord, logger *zap.Logger) ([]models.OrderRecord, DropStats) {
	var stats DropStats
	kept := make([]models.OrderRecord, 0, len(records))

	for _, rec := range records {
		if rec.Quantity < 0 || rec.QuantityUsed < 0 || rec.AvgDailyConsumption < 0 {
			stats.NegativeValues++
			continue
		}
		if models.MonthNumber(rec.OrderPeriod) == 0 {
			stats.InvalidPeriod++
			continue
		}
		rec.OrderPeriod = models.CanonicalMonth(rec.OrderPeriod)
		kept = append(kept, rec)
	}

	if stats.NegativeValues > 0 {
		logger.Warn("Dropped rows with negative values",
			zap.Int("count", stats.NegativeValues))
		util.RecordsDroppedTotal.WithLabelValues("negative_values").Add(float64(stats.NegativeValues))
	}
	if stats.InvalidPeriod > 0 {
		logger.Warn("Dropped rows with invalid order_period",
			zap.Int("count", stats.InvalidPeriod))
		util.RecordsDroppedTotal.WithLabelValues("invalid_period").Add(float64(stats.InvalidPeriod))
	}
	if total := stats.Total(); total > 0 {
		logger.Info("Rows dropped during cleaning", zap.Int("total", total))
	}

	return kept, stats
}
