package catalog

import (
	"testing"

	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(id, name, lat, lon string) types.LocationRecord {
	return types.LocationRecord{StationID: id, DisplayName: name, Latitude: lat, Longitude: lon}
}

func TestBuild(t *testing.T) {
	c := Build([]types.LocationRecord{
		loc("0000000001", "Kleinhüningen", "47.586", "7.593"),
		loc("0000000002", "Lange Erlen", "47.58", "7.62"),
	})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"0000000001", "0000000002"}, c.IDs())
	assert.Empty(t, c.Excluded())
	assert.Empty(t, c.Warnings())

	st, ok := c.Get("0000000002")
	require.True(t, ok)
	assert.Equal(t, "Lange Erlen", st.DisplayName)
	assert.Equal(t, 47.58, st.Latitude)
	assert.Equal(t, 7.62, st.Longitude)
	assert.Nil(t, st.Elevation)
}

func TestBuildLastRecordWins(t *testing.T) {
	c := Build([]types.LocationRecord{
		loc("S1", "old name", "47.0", "7.0"),
		loc("S1", "new name", "47.5", "7.5"),
	})

	st, ok := c.Get("S1")
	require.True(t, ok)
	assert.Equal(t, "new name", st.DisplayName)
	assert.Equal(t, 47.5, st.Latitude)
}

func TestBuildLastRecordWinsEvenWhenInvalid(t *testing.T) {
	c := Build([]types.LocationRecord{
		loc("S1", "good", "47.0", "7.0"),
		loc("S1", "broken", "", "7.0"),
	})

	_, ok := c.Get("S1")
	assert.False(t, ok)
	require.Len(t, c.Excluded(), 1)
	assert.Equal(t, "S1", c.Excluded()[0].StationID)
}

func TestBuildExclusions(t *testing.T) {
	tests := []struct {
		name   string
		record types.LocationRecord
		reason string
	}{
		{"missing latitude", loc("A", "a", "", "7.1"), "missing latitude"},
		{"missing longitude", loc("B", "b", "47.1", "  "), "missing longitude"},
		{"non-numeric latitude", loc("C", "c", "n/a", "7.1"), `non-numeric latitude "n/a"`},
		{"nan longitude", loc("D", "d", "47.1", "NaN"), `non-numeric longitude "NaN"`},
		{"latitude out of range", loc("E", "e", "91", "7.1"), "latitude 91 out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Build([]types.LocationRecord{tt.record, loc("OK", "ok", "47", "7")})

			assert.Equal(t, 1, c.Len())
			require.Len(t, c.Excluded(), 1)
			assert.Equal(t, tt.reason, c.Excluded()[0].Reason)

			require.Len(t, c.Warnings(), 1)
			assert.Equal(t, types.WarnExcludedStations, c.Warnings()[0].Code)
			assert.Equal(t, []string{tt.record.StationID}, c.Warnings()[0].StationIDs)
		})
	}
}

func TestBuildDefaultsAndElevation(t *testing.T) {
	r := loc(" S9 ", "", "47.2", "7.3")
	r.Elevation = "255.4"
	c := Build([]types.LocationRecord{r, loc("", "nameless", "1", "1")})

	st, ok := c.Get("S9")
	require.True(t, ok)
	assert.Equal(t, "S9", st.DisplayName)
	require.NotNil(t, st.Elevation)
	assert.Equal(t, 255.4, *st.Elevation)

	require.Len(t, c.Warnings(), 1)
	assert.Equal(t, types.WarnSkippedRows, c.Warnings()[0].Code)
}

func TestBuildEmpty(t *testing.T) {
	c := Build(nil)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Stations())
	assert.Empty(t, c.Excluded())
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Build([]types.LocationRecord{
		loc("A", "a", "47.5", "7.6"),
		loc("B", "b", "", "7.6"),
	})

	excluded := c.Excluded()
	require.Len(t, excluded, 1)
	excluded[0].StationID = "changed"
	assert.Equal(t, "B", c.Excluded()[0].StationID)

	warnings := c.Warnings()
	require.Len(t, warnings, 1)
	warnings[0].Code = types.WarnEmptyRange
	assert.Equal(t, types.WarnExcludedStations, c.Warnings()[0].Code)

	ids := c.IDs()
	ids[0] = "changed"
	assert.Equal(t, []string{"A"}, c.IDs())
}
