package postgis

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/choropleth-cli/internal/db"
	"github.com/sells-group/choropleth-cli/internal/model"
)

const transformSQL = `SELECT t.ord, ST_AsEWKB(ST_Multi(ST_Transform(ST_GeomFromEWKB(t.g), 4326)))
FROM unnest($1::bytea[]) WITH ORDINALITY AS t(g, ord)`

// Reprojector converts projected boundaries to WGS 84 with ST_Transform,
// sending every geometry in one round trip.
type Reprojector struct {
	pool db.Pool
}

// NewReprojector creates a Reprojector backed by pool.
func NewReprojector(pool db.Pool) *Reprojector {
	return &Reprojector{pool: pool}
}

// Reproject returns copies of polygons in EPSG:4326. Every polygon must
// carry an EPSG code.
func (r *Reprojector) Reproject(ctx context.Context, polygons []model.PolygonRecord) ([]model.PolygonRecord, error) {
	if len(polygons) == 0 {
		return nil, nil
	}

	payload := make([][]byte, len(polygons))
	for i, p := range polygons {
		if p.CRS.EPSG == 0 {
			return nil, eris.Errorf("postgis: %s has no EPSG code (CRS %s)", p.Code, p.CRS)
		}
		if p.Geometry == nil {
			return nil, eris.Errorf("postgis: %s has no geometry", p.Code)
		}
		b, err := ewkb.Marshal(p.Geometry.Clone().SetSRID(p.CRS.EPSG), ewkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "postgis: encode %s", p.Code)
		}
		payload[i] = b
	}

	rows, err := r.pool.Query(ctx, transformSQL, payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: transform")
	}
	defer rows.Close()

	out := make([]model.PolygonRecord, len(polygons))
	seen := 0
	for rows.Next() {
		var (
			ord int64
			raw []byte
		)
		if err := rows.Scan(&ord, &raw); err != nil {
			return nil, eris.Wrap(err, "postgis: scan transformed geometry")
		}
		i := int(ord) - 1
		if i < 0 || i >= len(polygons) {
			return nil, eris.Errorf("postgis: transform returned ordinal %d for %d geometries", ord, len(polygons))
		}
		g, err := ewkb.Unmarshal(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "postgis: decode %s", polygons[i].Code)
		}
		mp, ok := g.(*geom.MultiPolygon)
		if !ok {
			return nil, eris.Errorf("postgis: transform of %s returned %T", polygons[i].Code, g)
		}
		rec := polygons[i]
		rec.Geometry = mp.SetSRID(SRID)
		rec.CRS = model.WGS84
		out[i] = rec
		seen++
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: transform rows")
	}
	if seen != len(polygons) {
		return nil, eris.Errorf("postgis: transform returned %d of %d geometries", seen, len(polygons))
	}
	return out, nil
}
