package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("parses ISO dates", func(t *testing.T) {
		d, err := ParseDate("2025-12-31")
		require.NoError(t, err)
		assert.Equal(t, 2025, d.Year())
		assert.Equal(t, time.December, d.Month())
		assert.Equal(t, 31, d.Day())
	})

	t.Run("rejects non-ISO input", func(t *testing.T) {
		_, err := ParseDate("31/12/2025")
		assert.Error(t, err)
		_, err = ParseDate("2025-13-01")
		assert.Error(t, err)
	})
}

func TestParseFlexibleDate(t *testing.T) {
	t.Run("accepts ISO", func(t *testing.T) {
		d, err := ParseFlexibleDate("2025-08-15")
		require.NoError(t, err)
		assert.Equal(t, "2025-08-15", d.String())
	})

	t.Run("accepts DD/MM/YYYY", func(t *testing.T) {
		d, err := ParseFlexibleDate("15/08/2025")
		require.NoError(t, err)
		assert.Equal(t, "2025-08-15", d.String())
	})

	t.Run("rejects everything else", func(t *testing.T) {
		_, err := ParseFlexibleDate("Aug 15, 2025")
		assert.Error(t, err)
	})
}

func TestAddMonths(t *testing.T) {
	t.Run("clamps day to target month end", func(t *testing.T) {
		assert.Equal(t, MustDate("2025-02-28"), MustDate("2025-01-31").AddMonths(1))
		assert.Equal(t, MustDate("2024-02-29"), MustDate("2024-01-31").AddMonths(1))
		assert.Equal(t, MustDate("2025-04-30"), MustDate("2025-03-31").AddMonths(1))
	})

	t.Run("keeps day when it fits", func(t *testing.T) {
		assert.Equal(t, MustDate("2025-04-15"), MustDate("2025-01-15").AddMonths(3))
	})

	t.Run("crosses year boundaries", func(t *testing.T) {
		assert.Equal(t, MustDate("2026-02-15"), MustDate("2025-11-15").AddMonths(3))
		assert.Equal(t, MustDate("2024-11-15"), MustDate("2025-02-15").AddMonths(-3))
		assert.Equal(t, MustDate("2024-12-31"), MustDate("2025-01-31").AddMonths(-1))
	})
}

func TestRollMonths(t *testing.T) {
	t.Run("month end rolls to month end", func(t *testing.T) {
		assert.Equal(t, MustDate("2025-05-31"), MustDate("2025-04-30").RollMonths(1))
		assert.Equal(t, MustDate("2025-05-31"), MustDate("2025-02-28").RollMonths(3))
		assert.Equal(t, MustDate("2025-09-30"), MustDate("2025-06-30").RollMonths(3))
	})

	t.Run("mid-month keeps its day", func(t *testing.T) {
		assert.Equal(t, MustDate("2025-05-15"), MustDate("2025-04-15").RollMonths(1))
	})

	t.Run("mid-month still clamps on overflow", func(t *testing.T) {
		// Jan 30 is not a month end, but Feb has no 30th
		assert.Equal(t, MustDate("2025-02-28"), MustDate("2025-01-30").RollMonths(1))
	})
}

func TestDateArithmetic(t *testing.T) {
	t.Run("AddDays", func(t *testing.T) {
		assert.Equal(t, MustDate("2026-01-01"), MustDate("2025-12-31").AddDays(1))
		assert.Equal(t, MustDate("2025-12-30"), MustDate("2025-12-31").AddDays(-1))
	})

	t.Run("DaysUntil", func(t *testing.T) {
		assert.Equal(t, 31, MustDate("2025-12-01").DaysUntil(MustDate("2026-01-01")))
		assert.Equal(t, -1, MustDate("2025-12-01").DaysUntil(MustDate("2025-11-30")))
		assert.Equal(t, 0, MustDate("2025-12-01").DaysUntil(MustDate("2025-12-01")))
	})

	t.Run("ordering", func(t *testing.T) {
		earlier, later := MustDate("2025-11-30"), MustDate("2025-12-01")
		assert.True(t, earlier.Before(later))
		assert.True(t, later.After(earlier))
		assert.Equal(t, -1, earlier.Compare(later))
		assert.True(t, earlier.Equal(MustDate("2025-11-30")))
	})
}

func TestMonthEnd(t *testing.T) {
	assert.True(t, MustDate("2025-02-28").IsMonthEnd())
	assert.False(t, MustDate("2024-02-28").IsMonthEnd())
	assert.True(t, MustDate("2024-02-29").IsMonthEnd())
	assert.Equal(t, MustDate("2025-06-30"), MustDate("2025-06-12").LastDayOfMonth())
}

func TestDateText(t *testing.T) {
	t.Run("round trips through text", func(t *testing.T) {
		raw, err := MustDate("2025-12-31").MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "2025-12-31", string(raw))

		var d Date
		require.NoError(t, d.UnmarshalText(raw))
		assert.True(t, d.Equal(MustDate("2025-12-31")))
	})

	t.Run("zero date renders empty", func(t *testing.T) {
		var d Date
		assert.True(t, d.IsZero())
		assert.Equal(t, "", d.String())

		require.NoError(t, d.UnmarshalText(nil))
		assert.True(t, d.IsZero())
	})
}
