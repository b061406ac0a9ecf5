package loader

import (
	"errors"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/model"
)

var (
	wktRoot      = regexp.MustCompile(`^\s*([A-Z]+)\s*\[\s*"([^"]*)"`)
	wktAuthority = regexp.MustCompile(`AUTHORITY\s*\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]|ID\s*\[\s*"EPSG"\s*,\s*(\d+)\s*\]`)
)

// knownCRS fills in EPSG codes for ESRI-style WKT, which usually omits
// the AUTHORITY node.
var knownCRS = map[string]int{
	"gcs_wgs_1984":                           4326,
	"wgs 84":                                 4326,
	"wgs84":                                  4326,
	"british_national_grid":                  27700,
	"osgb 1936 / british national grid":      27700,
	"osgb36 / british national grid":         27700,
	"wgs_1984_web_mercator_auxiliary_sphere": 3857,
	"wgs 84 / pseudo-mercator":               3857,
	"etrs89 / etrs-laea":                     3035,
	"etrs_1989_laea":                         3035,
	"gcs_etrs_1989":                          4258,
	"etrs89":                                 4258,
	"nad83":                                  4269,
	"gcs_north_american_1983":                4269,
	"osgb_1936_british_national_grid":        27700,
	"wgs_1984_pseudo_mercator":               3857,
}

// ReadCRS reads the coordinate system from the .prj sidecar of shpPath.
// Without a .prj the data is assumed to be WGS 84 longitude/latitude.
func ReadCRS(shpPath string) (model.CRS, error) {
	raw, err := readSidecar(shpPath, ".prj")
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("loader: no .prj file, assuming WGS 84", zap.String("path", shpPath))
		return model.WGS84, nil
	}
	if err != nil {
		return model.CRS{}, eris.Wrapf(err, "loader: read .prj for %s", shpPath)
	}
	return ParseWKT(string(raw))
}

// ParseWKT extracts the name, kind and EPSG code from a WKT coordinate
// system definition (WKT1 or WKT2).
func ParseWKT(wkt string) (model.CRS, error) {
	m := wktRoot.FindStringSubmatch(wkt)
	if m == nil {
		return model.CRS{}, eris.Errorf("loader: unrecognised WKT %q", truncate(wkt, 60))
	}

	crs := model.CRS{Name: m[2]}
	switch m[1] {
	case "GEOGCS", "GEOGCRS", "GEODCRS":
		crs.Geographic = true
	case "PROJCS", "PROJCRS":
	default:
		return model.CRS{}, eris.Errorf("loader: unsupported WKT root %s", m[1])
	}

	// The root node's identifier is the last one in the text.
	if ids := wktAuthority.FindAllStringSubmatch(wkt, -1); len(ids) > 0 {
		last := ids[len(ids)-1]
		code := last[1]
		if code == "" {
			code = last[2]
		}
		if n, err := strconv.Atoi(code); err == nil && closesRoot(wkt, last[0]) {
			crs.EPSG = n
		}
	}
	if crs.EPSG == 0 {
		crs.EPSG = knownCRS[strings.ToLower(crs.Name)]
	}
	return crs, nil
}

// closesRoot reports whether the identifier node sits directly inside the
// outermost brackets, so a datum or unit code is not mistaken for the CRS.
func closesRoot(wkt, node string) bool {
	i := strings.LastIndex(wkt, node)
	depth := 0
	for _, r := range wkt[:i] {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		}
	}
	return depth == 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
