package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Single-band float32 GeoTIFF export.
//
// The image server consumes exactly this layout: little-endian TIFF, one
// IEEE-float sample per pixel, one strip, pixel-is-point georeferencing in
// EPSG:4326. There is no pure-Go library that writes Geo* tags, so the
// fixed tag set is emitted directly.

// TIFF tag IDs used by the writer.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

// TIFF field types.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	value     uint32
}

// WriteGeoTIFF exports a grid as a single-band float32 GeoTIFF. Rows are
// written north-first, matching the grid's descending latitude axis. NaN
// cells become the GDAL nodata value.
func WriteGeoTIFF(path string, g *Grid) error {
	height := len(g.Lats)
	width := len(g.Lons)
	if height == 0 || width == 0 {
		return fmt.Errorf("geotiff %s: empty grid", path)
	}
	for i, row := range g.Values {
		if len(row) != width {
			return fmt.Errorf("geotiff %s: row %d has %d cells, want %d", path, i, len(row), width)
		}
	}

	lonStep := axisStep(g.Lons)
	latStep := axisStep(g.Lats)

	// Out-of-line payloads follow the IFD directly.
	const headerSize = 8
	const entryCount = 15
	ifdSize := 2 + entryCount*12 + 4
	scaleOff := headerSize + ifdSize
	tieOff := scaleOff + 3*8
	geoKeyOff := tieOff + 6*8
	stripOff := geoKeyOff + 16*2
	stripBytes := width * height * 4

	entries := []ifdEntry{
		{tagImageWidth, typeLong, 1, uint32(width)},
		{tagImageLength, typeLong, 1, uint32(height)},
		{tagBitsPerSample, typeShort, 1, 32},
		{tagCompression, typeShort, 1, 1},
		{tagPhotometric, typeShort, 1, 1},
		{tagStripOffsets, typeLong, 1, uint32(stripOff)},
		{tagSamplesPerPixel, typeShort, 1, 1},
		{tagRowsPerStrip, typeLong, 1, uint32(height)},
		{tagStripByteCounts, typeLong, 1, uint32(stripBytes)},
		{tagPlanarConfig, typeShort, 1, 1},
		{tagSampleFormat, typeShort, 1, 3},
		{tagModelPixelScale, typeDouble, 3, uint32(scaleOff)},
		{tagModelTiepoint, typeDouble, 6, uint32(tieOff)},
		{tagGeoKeyDirectory, typeShort, 16, uint32(geoKeyOff)},
		{tagGDALNoData, typeASCII, 4, asciiValue("nan")},
	}

	buf := &bytes.Buffer{}
	le := binary.LittleEndian

	// Header: little-endian magic, first IFD at offset 8.
	buf.Write([]byte{'I', 'I', 42, 0})
	writeU32(buf, le, headerSize)

	writeU16(buf, le, entryCount)
	for _, e := range entries {
		writeU16(buf, le, e.tag)
		writeU16(buf, le, e.fieldType)
		writeU32(buf, le, e.count)
		writeU32(buf, le, e.value)
	}
	writeU32(buf, le, 0) // no next IFD

	// ModelPixelScale: x, y, z resolution in CRS units.
	for _, v := range []float64{lonStep, latStep, 0} {
		writeF64(buf, le, v)
	}
	// ModelTiepoint: raster (0,0,0) -> first cell center (pixel-is-point).
	for _, v := range []float64{0, 0, 0, g.Lons[0], g.Lats[0], 0} {
		writeF64(buf, le, v)
	}
	// GeoKeyDirectory: geographic model, pixel-is-point, EPSG:4326.
	for _, v := range []uint16{
		1, 1, 0, 3,
		1024, 0, 1, 2, // GTModelType = geographic
		1025, 0, 1, 2, // GTRasterType = pixel-is-point
		2048, 0, 1, 4326, // GeographicType
	} {
		writeU16(buf, le, v)
	}

	for _, row := range g.Values {
		for _, v := range row {
			bits := math.Float32bits(float32(v))
			writeU32(buf, le, bits)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write geotiff %s: %w", path, err)
	}
	return nil
}

// asciiValue packs a short NUL-terminated string into the inline IFD value
// field (count must be <= 4 including the terminator).
func asciiValue(s string) uint32 {
	var b [4]byte
	copy(b[:], s)
	return binary.LittleEndian.Uint32(b[:])
}

func axisStep(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return math.Abs(axis[1] - axis[0])
}

func writeU16(buf *bytes.Buffer, le binary.ByteOrder, v uint16) {
	var b [2]byte
	le.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, le binary.ByteOrder, v uint32) {
	var b [4]byte
	le.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeF64(buf *bytes.Buffer, le binary.ByteOrder, v float64) {
	var b [8]byte
	le.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}
