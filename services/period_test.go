package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listen-history/models"
)

func listenAt(t time.Time, artist string) *models.Listen {
	return NewListen(t, "Song", artist, "id-"+artist, "")
}

func TestFilterCurrentMonth(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		listenAt(now.AddDate(-1, 0, 0), "old"),
		listenAt(time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC), "current"),
	}

	got := FilterByPeriod(ds, PeriodSelector{Kind: CurrentMonth}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "current", got[0].Artist)
}

func TestFilterCurrentYear(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		listenAt(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), "last-year"),
		listenAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "jan"),
		listenAt(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "sep"),
	}

	got := FilterByPeriod(ds, PeriodSelector{Kind: CurrentYear}, now)
	require.Len(t, got, 2)
	assert.Equal(t, "jan", got[0].Artist)
	assert.Equal(t, "sep", got[1].Artist)
}

func TestFilterAllTimeIsIdentity(t *testing.T) {
	ds := models.Dataset{
		listenAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "a"),
		listenAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "b"),
	}
	got := FilterByPeriod(ds, PeriodSelector{Kind: AllTime}, time.Now())
	assert.Equal(t, ds, got)
}

func TestFilterCustomRangeInclusive(t *testing.T) {
	start := time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		listenAt(time.Date(2024, 12, 7, 23, 59, 0, 0, time.UTC), "before"),
		listenAt(time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC), "first"),
		listenAt(time.Date(2024, 12, 10, 23, 59, 0, 0, time.UTC), "last"),
		listenAt(time.Date(2024, 12, 11, 0, 0, 0, 0, time.UTC), "after"),
	}

	got := FilterByPeriod(ds, PeriodSelector{Kind: CustomRange, Start: &start, End: &end}, time.Now())
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Artist)
	assert.Equal(t, "last", got[1].Artist)
}

func TestFilterCustomRangeMissingBoundFallsBack(t *testing.T) {
	start := time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		listenAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "a"),
		listenAt(time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC), "b"),
	}

	got := FilterByPeriod(ds, PeriodSelector{Kind: CustomRange, Start: &start}, time.Now())
	assert.Len(t, got, 2)
}

func TestFilterDoesNotMutate(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		listenAt(now.AddDate(-2, 0, 0), "a"),
		listenAt(now, "b"),
	}
	before := *ds[0]

	_ = FilterByPeriod(ds, PeriodSelector{Kind: CurrentMonth}, now)
	assert.Len(t, ds, 2)
	assert.Equal(t, before, *ds[0])
}

func TestParsePeriod(t *testing.T) {
	sel, err := ParsePeriod("", "", "")
	require.NoError(t, err)
	assert.Equal(t, AllTime, sel.Kind)

	sel, err = ParsePeriod("Month", "", "")
	require.NoError(t, err)
	assert.Equal(t, CurrentMonth, sel.Kind)

	sel, err = ParsePeriod("custom", "2024-12-01", "2024-12-31")
	require.NoError(t, err)
	require.NotNil(t, sel.Start)
	require.NotNil(t, sel.End)
	assert.Equal(t, "2024-12-01 to 2024-12-31", sel.String())

	sel, err = ParsePeriod("custom", "2024-12-01", "")
	require.NoError(t, err)
	assert.Nil(t, sel.End)
	assert.Equal(t, "all time", sel.String())

	_, err = ParsePeriod("custom", "12/01/2024", "")
	assert.Error(t, err)

	_, err = ParsePeriod("decade", "", "")
	assert.Error(t, err)
}
