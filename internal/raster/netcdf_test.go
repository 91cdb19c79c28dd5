package raster

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridNetCDFRoundTrip(t *testing.T) {
	g := &Grid{
		Name: "max_surge",
		Lats: []float64{16.2, 16.1, 16.0},
		Lons: []float64{105.0, 105.1},
		Values: [][]float64{
			{0.5, 1.5},
			{2.5, math.NaN()},
			{4.5, 5.5},
		},
		CRS: CRSWGS84,
	}
	path := filepath.Join(t.TempDir(), "grid.nc")

	require.NoError(t, WriteGrid(path, g))

	got, err := ReadGrid(path, "max_surge")
	require.NoError(t, err)
	assert.Equal(t, g.Lats, got.Lats)
	assert.Equal(t, g.Lons, got.Lons)
	assert.Equal(t, 0.5, got.At(0, 0))
	assert.Equal(t, 5.5, got.At(2, 1))
	assert.True(t, math.IsNaN(got.At(1, 1)))
}

func TestWindFieldNetCDFRoundTrip(t *testing.T) {
	f := testWindField()
	path := filepath.Join(t.TempDir(), "wind.nc")

	require.NoError(t, WriteWindField(path, f))

	got, err := ReadWindField(path, "ws")
	require.NoError(t, err)
	assert.Equal(t, f.Lats, got.Lats)
	assert.Equal(t, f.Lons, got.Lons)
	require.Len(t, got.Times, 2)
	assert.Equal(t, f.Times[0], got.Times[0])
	assert.Equal(t, f.Times[1], got.Times[1])
	assert.Equal(t, f.Values[1][2][3], got.Values[1][2][3])
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units     string
		wantScale time.Duration
		wantBase  time.Time
		wantErr   bool
	}{
		{
			units:     "seconds since 1970-01-01 00:00:00",
			wantScale: time.Second,
			wantBase:  time.Unix(0, 0).UTC(),
		},
		{
			units:     "hours since 2023-09-16 00:00:00",
			wantScale: time.Hour,
			wantBase:  time.Date(2023, 9, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			units:     "days since 2023-09-16",
			wantScale: 24 * time.Hour,
			wantBase:  time.Date(2023, 9, 16, 0, 0, 0, 0, time.UTC),
		},
		{units: "furlongs since 2023-09-16", wantErr: true},
		{units: "hours", wantErr: true},
		{units: "hours since someday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			scale, base, err := parseTimeUnits(tt.units)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScale, scale)
			assert.True(t, tt.wantBase.Equal(base))
		})
	}
}
