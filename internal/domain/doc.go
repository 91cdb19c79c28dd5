// Package domain models the forecast products ingested by the pipeline.
//
// # Data Sources
//
// Three product families arrive from the national surge forecast system:
//
//	Station surge:  NMF_TRN_OSTZSS_CSDT_{YYYYMMDDHH}_168h_SS_staSurge.txt
//	Max surge grid: NMF_TRN_OSTZSS_CSDT_{YYYYMMDDHH}_168h_SS_maxSurge.txt
//	Wind field:     nwp_high_res_wind_{YYYYMMDDHH}.nc
//
// The station and max-surge files are published onto a mounted remote
// directory; the wind field is fetched from an FTP server. The timestamp
// token embedded in each name is the forecast issue cycle in UTC, always on
// a 00Z or 12Z base hour.
//
// # Forecast Cycles
//
// Which cycle governs a given wall-clock instant depends on the family,
// because the two production chains publish at different offsets from the
// base hour:
//
//	Station/max-surge: hour in [1,15) -> previous day 12Z
//	                   hour >= 15    -> same day 00Z
//	                   hour < 1      -> (now - 1h)'s date at 00Z
//	Wind:              hour in [9,21] -> same day 00Z
//	                   hour < 9       -> same day 00Z minus 12h
//	                   hour > 21      -> same day 00Z plus 12h
//
// The comparison operators at hours 1, 15, 9 and 21 are load-bearing; the
// boundary tables in cycle_test.go pin them.
//
// # Station File Layout
//
// A station surge file is a whitespace-delimited table: a header row of
// station codes followed by one row per forecast hour. A 168-row body is an
// ECMWF-driven run covering seven days; extratropical runs emit 192 rows,
// of which the leading 25 belong to the previous day and are discarded.
//
// # Gridded Products
//
// The max-surge text grid carries 220 columns (longitude 105.0E..126.9E,
// 0.1 degree step) by 250 rows (latitude 16.0N..40.9N) stored transposed.
// The sentinel value 999.0 marks dry cells. Standardized grids are tagged
// EPSG:4326 with the northernmost row first.
package domain
