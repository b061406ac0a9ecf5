package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bin  Bin
		want string
	}{
		{NoData, "no-data"},
		{0, "0"},
		{7, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.bin.String())
		})
	}
}

func TestFloat(t *testing.T) {
	t.Parallel()

	p := Float(2.5)
	assert.NotNil(t, p)
	assert.InDelta(t, 2.5, *p, 1e-9)
}

func TestCRS_IsWGS84(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		crs  CRS
		want bool
	}{
		{"epsg 4326", WGS84, true},
		{"esri name without code", CRS{Name: "GCS_WGS_1984", Geographic: true}, true},
		{"british national grid", CRS{Name: "OSGB 1936 / British National Grid", EPSG: 27700}, false},
		{"projected name only", CRS{Name: "British_National_Grid"}, false},
		{"unknown", CRS{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.crs.IsWGS84())
		})
	}
}

func TestCRS_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "WGS 84 (EPSG:4326)", WGS84.String())
	assert.Equal(t, "unknown", CRS{}.String())
	assert.Equal(t, "British_National_Grid", CRS{Name: "British_National_Grid"}.String())
}
