package loader

import (
	"math"
	"strconv"
	"strings"
)

// missingMarkers are the placeholders statistical tables use for suppressed
// or unavailable figures.
var missingMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"..":  true,
	"n/a": true,
	"na":  true,
	"*":   true,
	"x":   true,
	":":   true,
}

// ParseValue coerces a cell to a number. It accepts a trailing percent sign
// and thousands separators. Missing markers, NaN, infinities and anything
// else unparseable yield nil.
func ParseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	if missingMarkers[strings.ToLower(s)] {
		return nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "_", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
