// Package model defines the record types that flow through the enrichment
// pipeline, from raw input rows to classified output rows.
package model

import "time"

// Table is an in-memory tabular dataset: a header row plus data rows, all
// cells kept as strings so unknown columns pass through untouched.
type Table struct {
	Header []string
	Rows   [][]string
}

// Record is one input row eligible for geocoding. Fields holds the raw cells
// index-aligned with the table header, so columns we know nothing about are
// preserved in their original order.
type Record struct {
	Index   int // zero-based position in the input table
	Address string
	Fields  []string
}

// GeocodedRecord is a Record whose address resolved to WGS84 coordinates.
type GeocodedRecord struct {
	Record
	Latitude  float64
	Longitude float64
}

// EnrichedRecord is the unit written to output: a geocoded record plus the
// sampled HAND value and its category label. Value is nil when the raster has
// no data at the point; the record is still written with the unknown label.
type EnrichedRecord struct {
	GeocodedRecord
	Value    *float64
	Category string
}

// DroppedRecord captures a row that left the pipeline, with enough context
// for manual follow-up.
type DroppedRecord struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Summary is the run report printed after a pipeline run.
type Summary struct {
	RunID        string          `json:"run_id"`
	InputRows    int             `json:"input_rows"`
	Geocoded     int             `json:"geocoded"`
	Dropped      []DroppedRecord `json:"dropped,omitempty"`
	DroppedCount int             `json:"dropped_count"`
	Unknown      int             `json:"unknown"`
	Output       string          `json:"output"`
	Elapsed      time.Duration   `json:"elapsed_ns"`
}
