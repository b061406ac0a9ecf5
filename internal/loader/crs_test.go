package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bngESRI = `PROJCS["British_National_Grid",GEOGCS["GCS_OSGB_1936",DATUM["D_OSGB_1936",SPHEROID["Airy_1849",6377563.396,299.3249646]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",400000.0],PARAMETER["False_Northing",-100000.0],PARAMETER["Central_Meridian",-2.0],PARAMETER["Scale_Factor",0.9996012717],PARAMETER["Latitude_Of_Origin",49.0],UNIT["Meter",1.0]]`

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

func TestParseWKT(t *testing.T) {
	tests := []struct {
		name       string
		wkt        string
		wantName   string
		wantEPSG   int
		geographic bool
	}{
		{"esri bng", bngESRI, "British_National_Grid", 27700, false},
		{"wgs84 with authority", wgs84WKT, "WGS 84", 4326, true},
		{"esri wgs84", `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`, "GCS_WGS_1984", 4326, true},
		{"wkt2", `PROJCRS["OSGB36 / British National Grid",BASEGEOGCRS["OSGB36",DATUM["Ordnance Survey of Great Britain 1936",ELLIPSOID["Airy 1830",6377563.396,299.3249646]]],ID["EPSG",27700]]`, "OSGB36 / British National Grid", 27700, false},
		{"nested authority only", `GEOGCS["Custom",DATUM["X",SPHEROID["Y",1,1],AUTHORITY["EPSG","6326"]]]`, "Custom", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crs, err := ParseWKT(tt.wkt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, crs.Name)
			assert.Equal(t, tt.wantEPSG, crs.EPSG)
			assert.Equal(t, tt.geographic, crs.Geographic)
		})
	}
}

func TestParseWKT_Invalid(t *testing.T) {
	_, err := ParseWKT("not a crs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognised WKT")

	_, err = ParseWKT(`VERT_CS["Newlyn",VERT_DATUM["Ordnance Datum Newlyn",2005]]`)
	require.Error(t, err)
}

func TestReadCRS_MissingPrj(t *testing.T) {
	crs, err := ReadCRS(filepath.Join(t.TempDir(), "areas.shp"))
	require.NoError(t, err)
	assert.True(t, crs.IsWGS84())
}

func TestReadCRS_UpperCaseSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "areas.PRJ"), []byte(bngESRI), 0o644))

	crs, err := ReadCRS(filepath.Join(dir, "areas.shp"))
	require.NoError(t, err)
	assert.Equal(t, 27700, crs.EPSG)
}
