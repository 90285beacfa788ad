package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMonth(t *testing.T) {
	assert.Equal(t, "April", CanonicalMonth("  aPRIL "))
	assert.Equal(t, "January", CanonicalMonth("january"))
	assert.Equal(t, "December", CanonicalMonth("DECEMBER"))
	assert.Equal(t, "", CanonicalMonth("   "))
}

func TestMonthNumber(t *testing.T) {
	assert.Equal(t, 1, MonthNumber("January"))
	assert.Equal(t, 4, MonthNumber(" april"))
	assert.Equal(t, 12, MonthNumber("December"))
	assert.Equal(t, 0, MonthNumber("Smarch"))
	assert.Equal(t, 0, MonthNumber(""))
}

func TestParseMonth(t *testing.T) {
	n, err := ParseMonth("september")
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	_, err = ParseMonth("Yesterday")
	assert.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(1, 2025))
	assert.Equal(t, 28, DaysInMonth(2, 2025))
	assert.Equal(t, 29, DaysInMonth(2, 2024))
	assert.Equal(t, 30, DaysInMonth(4, 2025))
}
