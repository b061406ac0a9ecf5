package model

import "fmt"

// CRS identifies the coordinate reference system of a geometry collection.
type CRS struct {
	Name       string `json:"name"`
	EPSG       int    `json:"epsg,omitempty"`
	Geographic bool   `json:"geographic"`
}

// WGS84 is longitude/latitude on the WGS 84 datum (EPSG:4326).
var WGS84 = CRS{Name: "WGS 84", EPSG: 4326, Geographic: true}

// IsWGS84 reports whether the CRS is plain longitude/latitude WGS 84.
func (c CRS) IsWGS84() bool {
	if c.EPSG != 0 {
		return c.EPSG == 4326
	}
	return c.Geographic && (c.Name == "WGS 84" || c.Name == "GCS_WGS_1984" || c.Name == "WGS84")
}

func (c CRS) String() string {
	if c.EPSG != 0 {
		return fmt.Sprintf("%s (EPSG:%d)", c.Name, c.EPSG)
	}
	if c.Name == "" {
		return "unknown"
	}
	return c.Name
}
