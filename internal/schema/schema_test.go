package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testHeader = []string{
	"order_period", "medication", "quantity", "purchase_date",
	"expiration_date", "quantity_used", "avg_daily_consumption",
}

func validRow() []string {
	return []string{"January", "Paracetamol", "100", "2025-01-05", "2026-01-05", "80", "2.5"}
}

func TestValidateMissingColumns(t *testing.T) {
	header := []string{"order_period", "medication", "quantity"}

	_, _, err := Validate(header, nil, zap.NewNop())
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "columns", valErr.Stage)
	assert.ElementsMatch(t,
		[]string{"purchase_date", "expiration_date", "quantity_used", "avg_daily_consumption"},
		valErr.Columns)
}

func TestValidateDtypeFailure(t *testing.T) {
	row := validRow()
	row[2] = "not-a-number"

	_, _, err := Validate(testHeader, [][]string{row}, zap.NewNop())
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "dtype", valErr.Stage)
	assert.Equal(t, []string{"quantity"}, valErr.Columns)
	assert.Equal(t, 1, valErr.Row)
}

func TestValidateBadDate(t *testing.T) {
	row := validRow()
	row[4] = "sometime next year"

	_, _, err := Validate(testHeader, [][]string{row}, zap.NewNop())
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "dates", valErr.Stage)
	assert.Equal(t, []string{"expiration_date"}, valErr.Columns)
}

func TestValidateNormalizesDates(t *testing.T) {
	row := validRow()
	row[3] = "2025/03/09"

	records, _, err := Validate(testHeader, [][]string{row}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-03-09", records[0].PurchaseDate)
}

func TestValidateCleaningDropsRows(t *testing.T) {
	negQty := validRow()
	negQty[2] = "-5"
	negUsed := validRow()
	negUsed[5] = "-1"
	badMonth := validRow()
	badMonth[0] = "Smarch"
	messyButValid := validRow()
	messyButValid[0] = "  fEBRUARY "
	messyButValid[3] = "2025-02-05"

	records, stats, err := Validate(testHeader,
		[][]string{validRow(), negQty, negUsed, badMonth, messyButValid}, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 2, stats.NegativeValues)
	assert.Equal(t, 1, stats.InvalidPeriod)
	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, "February", records[1].OrderPeriod)
}

func TestValidateAcceptsIntegralFloats(t *testing.T) {
	row := validRow()
	row[2] = "100.0"

	records, _, err := Validate(testHeader, [][]string{row}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 100, records[0].Quantity)
}

func TestReadCSVSkipsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	content := "\xEF\xBB\xBForder_period,medication\nJanuary,Paracetamol\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	header, rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_period", "medication"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "January", rows[0][0])
}
