package raster

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestGeoTIFF(t *testing.T, g *Grid) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.tif")
	require.NoError(t, WriteGeoTIFF(path, g))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// findTag scans the single IFD for a tag and returns (fieldType, count, value).
func findTag(t *testing.T, data []byte, tag uint16) (uint16, uint32, uint32) {
	t.Helper()
	le := binary.LittleEndian
	ifdOff := le.Uint32(data[4:8])
	n := int(le.Uint16(data[ifdOff : ifdOff+2]))
	for i := 0; i < n; i++ {
		off := int(ifdOff) + 2 + i*12
		if le.Uint16(data[off:off+2]) == tag {
			return le.Uint16(data[off+2 : off+4]), le.Uint32(data[off+4 : off+8]), le.Uint32(data[off+8 : off+12])
		}
	}
	t.Fatalf("tag %d not found", tag)
	return 0, 0, 0
}

func TestWriteGeoTIFFLayout(t *testing.T) {
	g := &Grid{
		Name: "max_surge",
		Lats: []float64{16.2, 16.1, 16.0},
		Lons: []float64{105.0, 105.1},
		Values: [][]float64{
			{1.5, 2.5},
			{3.5, math.NaN()},
			{5.5, 6.5},
		},
		CRS: CRSWGS84,
	}

	data := writeTestGeoTIFF(t, g)

	// Little-endian TIFF magic.
	assert.Equal(t, []byte{'I', 'I', 42, 0}, data[:4])

	_, _, width := findTag(t, data, tagImageWidth)
	_, _, height := findTag(t, data, tagImageLength)
	assert.Equal(t, uint32(2), width)
	assert.Equal(t, uint32(3), height)

	_, _, bits := findTag(t, data, tagBitsPerSample)
	assert.Equal(t, uint32(32), bits)
	_, _, format := findTag(t, data, tagSampleFormat)
	assert.Equal(t, uint32(3), format) // IEEE float

	_, _, byteCount := findTag(t, data, tagStripByteCounts)
	assert.Equal(t, uint32(2*3*4), byteCount)

	// Strip data: row-major float32 starting from the northernmost row.
	_, _, stripOff := findTag(t, data, tagStripOffsets)
	le := binary.LittleEndian
	first := math.Float32frombits(le.Uint32(data[stripOff : stripOff+4]))
	assert.Equal(t, float32(1.5), first)
	nanCell := math.Float32frombits(le.Uint32(data[stripOff+12 : stripOff+16]))
	assert.True(t, math.IsNaN(float64(nanCell)))
	assert.Equal(t, int(stripOff)+2*3*4, len(data))
}

func TestWriteGeoTIFFGeoKeys(t *testing.T) {
	g := &Grid{
		Name:   "ws",
		Lats:   []float64{41.0, 16.1},
		Lons:   []float64{105.0, 126.9},
		Values: [][]float64{{1, 2}, {3, 4}},
		CRS:    CRSWGS84,
	}

	data := writeTestGeoTIFF(t, g)
	le := binary.LittleEndian

	typ, count, off := findTag(t, data, tagGeoKeyDirectory)
	assert.Equal(t, uint16(typeShort), typ)
	assert.Equal(t, uint32(16), count)
	keys := make([]uint16, 16)
	for i := range keys {
		keys[i] = le.Uint16(data[int(off)+2*i:])
	}
	// Last key pins the CRS: GeographicTypeGeoKey = 4326.
	assert.Equal(t, uint16(2048), keys[12])
	assert.Equal(t, uint16(4326), keys[15])

	// Tiepoint maps raster origin to the first cell center.
	_, _, tieOff := findTag(t, data, tagModelTiepoint)
	lon := math.Float64frombits(le.Uint64(data[int(tieOff)+3*8:]))
	lat := math.Float64frombits(le.Uint64(data[int(tieOff)+4*8:]))
	assert.Equal(t, 105.0, lon)
	assert.Equal(t, 41.0, lat)
}

func TestWriteGeoTIFFRejectsRaggedGrid(t *testing.T) {
	g := &Grid{
		Lats:   []float64{1, 2},
		Lons:   []float64{3, 4},
		Values: [][]float64{{1, 2}, {3}},
	}
	err := WriteGeoTIFF(filepath.Join(t.TempDir(), "bad.tif"), g)
	assert.Error(t, err)
}
