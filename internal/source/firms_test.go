package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFirmsCSVHeaderIndexLookup(t *testing.T) {
	// Column order differs between sensors, parsing must go through the
	// header row rather than fixed positions.
	csv := "country_id,latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight\n" +
		"UKR,48.5312,37.9821,345.2,0.39,0.36,2026-08-29,112,N,VIIRS,n,2.0NRT,301.1,12.4,D\n" +
		"UKR,48.1001,37.5000,,0.41,0.37,2026-08-29,1530,N,VIIRS,h,2.0NRT,295.0,8.1,N\n"

	hotspots, err := ParseFirmsCSV([]byte(csv))
	require.NoError(t, err)
	require.Len(t, hotspots, 2)

	assert.Equal(t, 48.5312, hotspots[0].Latitude)
	assert.Equal(t, 37.9821, hotspots[0].Longitude)
	assert.Equal(t, 345.2, hotspots[0].Brightness)
	assert.Equal(t, "n", hotspots[0].Confidence)
	assert.Equal(t, 12.4, hotspots[0].FRP)
	// acq_time "112" means 01:12 UTC.
	assert.Equal(t, 1, hotspots[0].AcquiredAt.Hour())
	assert.Equal(t, 12, hotspots[0].AcquiredAt.Minute())

	// Blank numeric columns default to zero instead of dropping the row.
	assert.Equal(t, 0.0, hotspots[1].Brightness)
	assert.Equal(t, 15, hotspots[1].AcquiredAt.Hour())
}

func TestParseFirmsCSVMissingColumns(t *testing.T) {
	_, err := ParseFirmsCSV([]byte("foo,bar\n1,2\n"))
	require.Error(t, err)
}

func TestParseFirmsCSVSkipsBadRows(t *testing.T) {
	csv := "latitude,longitude,acq_date,acq_time\n" +
		"not-a-number,37.0,2026-08-29,0100\n" +
		"48.0,37.0,2026-08-29,0100\n"

	hotspots, err := ParseFirmsCSV([]byte(csv))
	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	assert.Equal(t, 48.0, hotspots[0].Latitude)
}
