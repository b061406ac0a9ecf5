// Package postgis exports classified features to a PostGIS table so other
// GIS tools can render the same map.
package postgis

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/db"
	"github.com/sells-group/choropleth-cli/internal/model"
)

// SRID of every exported geometry.
const SRID = 4326

// Columns of the export table, in COPY order.
var Columns = []string{"code", "name", "value", "bin", "fill", "build_id", "geom"}

// Options controls how Publish writes rows.
type Options struct {
	BuildID string
	// Upsert merges by code instead of replacing the table contents.
	Upsert bool
}

// EnsureTable creates the schema, table and spatial index if missing.
func EnsureTable(ctx context.Context, pool db.Pool, schema, table string) error {
	if table == "" {
		return eris.New("postgis: table name is required")
	}
	name := db.QualifiedName(schema, table)

	stmts := make([]string, 0, 3)
	if schema != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize()))
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	code text PRIMARY KEY,
	name text,
	value double precision,
	bin integer,
	fill text NOT NULL,
	build_id text,
	geom geometry(MultiPolygon, %d) NOT NULL
)`, name, SRID),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (geom)",
			pgx.Identifier{table + "_geom_idx"}.Sanitize(), name),
	)

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgis: ensure table %s", name)
		}
	}
	return nil
}

// Publish writes features to schema.table. By default the table is truncated
// and reloaded in one transaction; Options.Upsert merges by code instead.
func Publish(ctx context.Context, pool db.Pool, schema, table string, features []model.JoinedFeature, palette choropleth.Palette, opts Options) (int64, error) {
	rows, err := Rows(features, palette, opts.BuildID)
	if err != nil {
		return 0, err
	}
	log := zap.L().With(zap.String("component", "postgis"), zap.String("table", db.QualifiedName(schema, table)))

	if opts.Upsert {
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Schema:       schema,
			Table:        table,
			Columns:      Columns,
			ConflictKeys: []string{"code"},
		}, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgis: upsert")
		}
		log.Info("features upserted", zap.Int64("rows", n))
		return n, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+db.QualifiedName(schema, table)); err != nil {
		return 0, eris.Wrap(err, "postgis: truncate")
	}
	n, err := db.CopyFromSchema(ctx, tx, schema, table, Columns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: copy")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgis: commit tx")
	}
	log.Info("features published", zap.Int64("rows", n))
	return n, nil
}

// Count returns the number of rows in schema.table.
func Count(ctx context.Context, pool db.Pool, schema, table string) (int64, error) {
	var n int64
	err := pool.QueryRow(ctx, "SELECT count(*) FROM "+db.QualifiedName(schema, table)).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: count")
	}
	return n, nil
}

// Rows converts features to COPY rows matching Columns. No-data features get
// NULL value and bin.
func Rows(features []model.JoinedFeature, palette choropleth.Palette, buildID string) ([][]any, error) {
	rows := make([][]any, 0, len(features))
	for _, f := range features {
		g, err := EncodeGeometry(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "postgis: encode %s", f.Code)
		}
		var value, bin any
		if f.Value != nil {
			value = *f.Value
		}
		if f.Bin != model.NoData {
			bin = int32(f.Bin)
		}
		rows = append(rows, []any{f.Code, f.Name, value, bin, palette.ColorOf(f.Bin), buildID, g})
	}
	return rows, nil
}

// EncodeGeometry marshals mp as little-endian EWKB tagged with SRID. The
// input is not modified.
func EncodeGeometry(mp *geom.MultiPolygon) ([]byte, error) {
	if mp == nil {
		return nil, eris.New("postgis: nil geometry")
	}
	if srid := mp.SRID(); srid != 0 && srid != SRID {
		return nil, eris.Errorf("postgis: geometry SRID %d is not %d", srid, SRID)
	}
	b, err := ewkb.Marshal(mp.Clone().SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: marshal ewkb")
	}
	return b, nil
}
