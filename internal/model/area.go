// Package model defines the records that flow through the choropleth pipeline.
package model

import (
	"strconv"

	"github.com/twpayne/go-geom"
)

// AreaRecord is one row of the tabular source keyed by area code.
type AreaRecord struct {
	Code  string   `json:"code"`
	Name  string   `json:"name"`
	Value *float64 `json:"value"` // nil when absent or unparseable
}

// PolygonRecord is one boundary from the polygon source.
type PolygonRecord struct {
	Code     string
	Name     string
	Geometry *geom.MultiPolygon
	CRS      CRS
}

// Bin is a color class index. NoData marks features without a usable value.
type Bin int

// NoData is the sentinel bin for nil values.
const NoData Bin = -1

// String renders the bin for logs and legends.
func (b Bin) String() string {
	if b == NoData {
		return "no-data"
	}
	return strconv.Itoa(int(b))
}

// JoinedFeature is a polygon with its matched attributes and color bin.
type JoinedFeature struct {
	Code     string
	Name     string
	Value    *float64
	Geometry *geom.MultiPolygon
	Matched  bool
	Bin      Bin
}

// Float returns a pointer to v. Handy for building records in tests and loaders.
func Float(v float64) *float64 { return &v }
