package raster

import (
	"fmt"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// timeUnits is the encoding used for the time axis of wind-field files
// written by this pipeline. Files from the upstream provider may instead
// carry "hours since ..." units, which the reader also accepts.
const timeUnits = "seconds since 1970-01-01 00:00:00"

// WriteGrid persists a canonical grid as a NetCDF (classic) file with CF
// axis attributes and the crs tag.
func WriteGrid(path string, g *Grid) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create netcdf %s: %w", path, err)
	}

	latAttrs, err := util.NewOrderedMap(
		[]string{"axis", "units", "long_name", "standard_name"},
		map[string]interface{}{
			"axis":          "Y",
			"units":         "degrees_north",
			"long_name":     "latitude",
			"standard_name": "latitude",
		})
	if err != nil {
		return err
	}
	lonAttrs, err := util.NewOrderedMap(
		[]string{"axis", "units", "long_name", "standard_name"},
		map[string]interface{}{
			"axis":          "X",
			"units":         "degrees_east",
			"long_name":     "longitude",
			"standard_name": "longitude",
		})
	if err != nil {
		return err
	}
	globalAttrs, err := util.NewOrderedMap([]string{"crs"}, map[string]interface{}{"crs": g.CRS})
	if err != nil {
		return err
	}

	if err := cw.AddVar("lat", api.Variable{Values: g.Lats, Dimensions: []string{"lat"}, Attributes: latAttrs}); err != nil {
		return fmt.Errorf("write lat axis: %w", err)
	}
	if err := cw.AddVar("lon", api.Variable{Values: g.Lons, Dimensions: []string{"lon"}, Attributes: lonAttrs}); err != nil {
		return fmt.Errorf("write lon axis: %w", err)
	}
	if err := cw.AddVar(g.Name, api.Variable{Values: g.Values, Dimensions: []string{"lat", "lon"}}); err != nil {
		return fmt.Errorf("write %s: %w", g.Name, err)
	}
	if err := cw.AddAttributes(globalAttrs); err != nil {
		return fmt.Errorf("write global attrs: %w", err)
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close netcdf %s: %w", path, err)
	}
	return nil
}

// ReadGrid loads a single-variable 2D grid written by WriteGrid.
func ReadGrid(path, name string) (*Grid, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	defer nc.Close()

	lats, err := readFloatVector(nc, "lat")
	if err != nil {
		return nil, err
	}
	lons, err := readFloatVector(nc, "lon")
	if err != nil {
		return nil, err
	}
	vr, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("netcdf %s: variable %s: %w", path, name, err)
	}
	values, err := toMatrix(vr.Values)
	if err != nil {
		return nil, fmt.Errorf("netcdf %s: variable %s: %w", path, name, err)
	}

	return &Grid{Name: name, Lats: lats, Lons: lons, Values: values, CRS: CRSWGS84}, nil
}

// WriteWindField persists a (possibly cropped) wind field. The time axis is
// written as epoch seconds.
func WriteWindField(path string, f *WindField) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create netcdf %s: %w", path, err)
	}

	times := make([]int64, len(f.Times))
	for i, t := range f.Times {
		times[i] = t.Unix()
	}
	timeAttrs, err := util.NewOrderedMap([]string{"units"}, map[string]interface{}{"units": timeUnits})
	if err != nil {
		return err
	}

	if err := cw.AddVar("time", api.Variable{Values: times, Dimensions: []string{"time"}, Attributes: timeAttrs}); err != nil {
		return fmt.Errorf("write time axis: %w", err)
	}
	if err := cw.AddVar("lat", api.Variable{Values: f.Lats, Dimensions: []string{"lat"}}); err != nil {
		return fmt.Errorf("write lat axis: %w", err)
	}
	if err := cw.AddVar("lon", api.Variable{Values: f.Lons, Dimensions: []string{"lon"}}); err != nil {
		return fmt.Errorf("write lon axis: %w", err)
	}
	if err := cw.AddVar(f.Name, api.Variable{Values: f.Values, Dimensions: []string{"time", "lat", "lon"}}); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close netcdf %s: %w", path, err)
	}
	return nil
}

// ReadWindField opens a raw or cropped wind field. The named variable must
// be dimensioned [time][lat][lon].
func ReadWindField(path, name string) (*WindField, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	defer nc.Close()

	lats, err := readFloatVector(nc, "lat")
	if err != nil {
		return nil, err
	}
	lons, err := readFloatVector(nc, "lon")
	if err != nil {
		return nil, err
	}
	times, err := readTimeVector(nc)
	if err != nil {
		return nil, err
	}
	vr, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("netcdf %s: variable %s: %w", path, name, err)
	}
	values, err := toCube(vr.Values)
	if err != nil {
		return nil, fmt.Errorf("netcdf %s: variable %s: %w", path, name, err)
	}

	return &WindField{Name: name, Lats: lats, Lons: lons, Times: times, Values: values}, nil
}

func readFloatVector(nc api.Group, name string) ([]float64, error) {
	vr, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	return toVector(vr.Values)
}

// readTimeVector decodes the time axis, accepting either the epoch-seconds
// encoding this pipeline writes or the provider's "hours since <base>"
// convention.
func readTimeVector(nc api.Group) ([]time.Time, error) {
	vr, err := nc.GetVariable("time")
	if err != nil {
		return nil, fmt.Errorf("variable time: %w", err)
	}
	raw, err := toVector(vr.Values)
	if err != nil {
		return nil, fmt.Errorf("variable time: %w", err)
	}

	units := timeUnits
	if vr.Attributes != nil {
		if u, has := vr.Attributes.Get("units"); has {
			if s, ok := u.(string); ok {
				units = s
			}
		}
	}

	scale, base, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(raw))
	for i, v := range raw {
		times[i] = base.Add(time.Duration(v * float64(scale))).UTC()
	}
	return times, nil
}

func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	fields := strings.SplitN(units, " since ", 2)
	if len(fields) != 2 {
		return 0, time.Time{}, fmt.Errorf("time units %q: missing 'since'", units)
	}
	var scale time.Duration
	switch strings.TrimSpace(fields[0]) {
	case "seconds":
		scale = time.Second
	case "minutes":
		scale = time.Minute
	case "hours":
		scale = time.Hour
	case "days":
		scale = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("time units %q: unsupported unit", units)
	}

	ref := strings.TrimSpace(fields[1])
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z", "2006-01-02"} {
		if base, err := time.ParseInLocation(layout, ref, time.UTC); err == nil {
			return scale, base, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("time units %q: unparseable reference time", units)
}

// The netcdf library surfaces values with the on-disk element type; the
// converters below normalize every numeric width to float64.

func toVector(v interface{}) ([]float64, error) {
	switch vv := v.(type) {
	case []float64:
		return vv, nil
	case []float32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported vector type %T", v)
	}
}

func toMatrix(v interface{}) ([][]float64, error) {
	switch vv := v.(type) {
	case [][]float64:
		return vv, nil
	case [][]float32:
		out := make([][]float64, len(vv))
		for i, row := range vv {
			out[i] = make([]float64, len(row))
			for j, x := range row {
				out[i][j] = float64(x)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported matrix type %T", v)
	}
}

func toCube(v interface{}) ([][][]float64, error) {
	switch vv := v.(type) {
	case [][][]float64:
		return vv, nil
	case [][][]float32:
		out := make([][][]float64, len(vv))
		for i, plane := range vv {
			out[i] = make([][]float64, len(plane))
			for j, row := range plane {
				out[i][j] = make([]float64, len(row))
				for k, x := range row {
					out[i][j][k] = float64(x)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported cube type %T", v)
	}
}
