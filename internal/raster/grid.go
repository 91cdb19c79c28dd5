// Package raster standardizes raw forecast grids into canonical
// EPSG:4326 rasters and exports their NetCDF and GeoTIFF derivatives.
package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CRSWGS84 is the coordinate reference system tagged onto every
// standardized raster.
const CRSWGS84 = "EPSG:4326"

// sentinelDry marks dry cells in the raw max-surge text grid.
const sentinelDry = 999.0

// The canonical max-surge domain: longitude 105.0E..<127.0E and latitude
// 16.0N..<41.0N at a 0.1 degree step, i.e. 220 x 250 cells.
const (
	maxSurgeLonMin  = 105.0
	maxSurgeLatMin  = 16.0
	maxSurgeStep    = 0.1
	maxSurgeLonSize = 220
	maxSurgeLatSize = 250
)

// Grid is a single-variable 2D raster. Lats are stored descending so that
// Values[0][0] is the northernmost, westernmost cell. Missing cells are
// NaN.
type Grid struct {
	Name   string
	Lats   []float64 // descending, degrees north
	Lons   []float64 // ascending, degrees east
	Values [][]float64
	CRS    string
}

// At returns the cell value at the given axis indexes.
func (g *Grid) At(latIdx, lonIdx int) float64 {
	return g.Values[latIdx][lonIdx]
}

// StandardizeOptions selects between the two historical standardization
// call sites. The filtering variant masks the 999.0 dry sentinel to NaN;
// the non-filtering variant keeps it as a literal value for consumers that
// distinguish dry cells from true missing data. Both produce identical
// axes.
type StandardizeOptions struct {
	FilterSentinel bool
}

// StandardizeMaxSurge reads a raw whitespace-delimited max-surge text grid
// and builds the canonical raster: the stored table is transposed, tagged
// with the fixed lon/lat axes and sorted north-first.
func StandardizeMaxSurge(path string, opts StandardizeOptions) (*Grid, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	values := transpose(table)
	if len(values) != maxSurgeLatSize || len(values[0]) != maxSurgeLonSize {
		return nil, fmt.Errorf("max-surge grid %s: got %dx%d cells, want %dx%d",
			path, len(values), len(values[0]), maxSurgeLatSize, maxSurgeLonSize)
	}

	if opts.FilterSentinel {
		for _, row := range values {
			for j, v := range row {
				if v == sentinelDry {
					row[j] = math.NaN()
				}
			}
		}
	}

	lons := make([]float64, maxSurgeLonSize)
	for i := range lons {
		lons[i] = maxSurgeLonMin + maxSurgeStep*float64(i)
	}
	// Built descending: after transposition row 0 holds the southernmost
	// latitude, so the rows are flipped to put north first.
	lats := make([]float64, maxSurgeLatSize)
	for i := range lats {
		lats[i] = maxSurgeLatMin + maxSurgeStep*float64(maxSurgeLatSize-1-i)
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}

	return &Grid{
		Name:   "max_surge",
		Lats:   lats,
		Lons:   lons,
		Values: values,
		CRS:    CRSWGS84,
	}, nil
}

// readTable reads a whitespace-delimited numeric table with no header.
func readTable(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file: %w", err)
	}
	defer f.Close()

	var table [][]float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, fv := range fields {
			v, err := strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("grid file %s line %d: %w", path, line, err)
			}
			row[i] = v
		}
		if len(table) > 0 && len(row) != len(table[0]) {
			return nil, fmt.Errorf("grid file %s line %d: ragged row", path, line)
		}
		table = append(table, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read grid file: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("grid file %s: empty", path)
	}
	return table, nil
}

func transpose(table [][]float64) [][]float64 {
	rows, cols := len(table), len(table[0])
	out := make([][]float64, cols)
	for i := range out {
		out[i] = make([]float64, rows)
		for j := 0; j < rows; j++ {
			out[i][j] = table[j][i]
		}
	}
	return out
}

// WindField is a time series of 2D wind rasters. Values is indexed
// [time][lat][lon]; Lats ascend or descend as stored in the source file.
type WindField struct {
	Name   string
	Lats   []float64
	Lons   []float64
	Times  []time.Time
	Values [][][]float64
}

// Crop drops every cell outside the given closed lon/lat window. The
// result is a destructive subset: axis lengths shrink to the bounding box
// rather than being NaN-filled.
func (f *WindField) Crop(lonMin, lonMax, latMin, latMax float64) *WindField {
	lonIdx := indexesWithin(f.Lons, lonMin, lonMax)
	latIdx := indexesWithin(f.Lats, latMin, latMax)

	out := &WindField{
		Name:  f.Name,
		Lats:  pick(f.Lats, latIdx),
		Lons:  pick(f.Lons, lonIdx),
		Times: f.Times,
	}
	out.Values = make([][][]float64, len(f.Values))
	for t, plane := range f.Values {
		cropped := make([][]float64, len(latIdx))
		for i, li := range latIdx {
			row := make([]float64, len(lonIdx))
			for j, lj := range lonIdx {
				row[j] = plane[li][lj]
			}
			cropped[i] = row
		}
		out.Values[t] = cropped
	}
	return out
}

// Step extracts the raster at one time index as a Grid with north-first
// rows and standard latitude/longitude axis naming.
func (f *WindField) Step(t int) *Grid {
	lats := make([]float64, len(f.Lats))
	copy(lats, f.Lats)
	values := make([][]float64, len(f.Values[t]))
	for i := range values {
		values[i] = make([]float64, len(f.Values[t][i]))
		copy(values[i], f.Values[t][i])
	}
	if len(lats) > 1 && lats[0] < lats[len(lats)-1] {
		for i, j := 0, len(lats)-1; i < j; i, j = i+1, j-1 {
			lats[i], lats[j] = lats[j], lats[i]
			values[i], values[j] = values[j], values[i]
		}
	}
	return &Grid{Name: f.Name, Lats: lats, Lons: f.Lons, Values: values, CRS: CRSWGS84}
}

func indexesWithin(axis []float64, min, max float64) []int {
	var idx []int
	for i, v := range axis {
		if v >= min && v <= max {
			idx = append(idx, i)
		}
	}
	return idx
}

func pick(axis []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = axis[j]
	}
	return out
}
