// Package pipeline wires the choropleth stages together: resolve both
// sources, load them, join areas onto polygons, classify, and assemble the
// map.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/config"
	"github.com/sells-group/choropleth-cli/internal/loader"
	"github.com/sells-group/choropleth-cli/internal/model"
	"github.com/sells-group/choropleth-cli/internal/render"
)

// SourceResolver turns a configured source location into a local file with
// one of the wanted extensions. *fetcher.Resolver satisfies it.
type SourceResolver interface {
	ResolveFile(ctx context.Context, location string, exts ...string) (string, error)
}

// Reprojector converts polygons to WGS 84 longitude/latitude.
type Reprojector interface {
	Reproject(ctx context.Context, polygons []model.PolygonRecord) ([]model.PolygonRecord, error)
}

// Sources are the resolved local paths of both inputs.
type Sources struct {
	Tabular  string `json:"tabular"`
	Boundary string `json:"boundary"`
}

// Result is the outcome of one run.
type Result struct {
	BuildID    string
	Sources    Sources
	Features   []model.JoinedFeature
	Classifier *choropleth.Classifier
	Palette    choropleth.Palette
	Legend     []choropleth.LegendEntry
	Join       choropleth.JoinStats
	NoData     int
	Map        *render.MapSpec
}

// Pipeline runs a map build from configuration.
type Pipeline struct {
	cfg         *config.Config
	resolver    SourceResolver
	reprojector Reprojector
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReprojector lets the pipeline accept boundaries in a projected CRS.
func WithReprojector(r Reprojector) Option {
	return func(p *Pipeline) { p.reprojector = r }
}

// WithBuildID fixes the build identifier instead of generating one.
func WithBuildID(id string) Option {
	return func(p *Pipeline) { p.newID = func() string { return id } }
}

// New creates a Pipeline.
func New(cfg *config.Config, resolver SourceResolver, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, resolver: resolver, newID: uuid.NewString}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Resolve fetches both sources concurrently.
func (p *Pipeline) Resolve(ctx context.Context) (Sources, error) {
	var src Sources
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		path, err := p.resolver.ResolveFile(gctx, p.cfg.Tabular.Source, ".xlsx", ".csv")
		if err != nil {
			return eris.Wrap(err, "pipeline: resolve tabular source")
		}
		src.Tabular = path
		return nil
	})
	g.Go(func() error {
		path, err := p.resolver.ResolveFile(gctx, p.cfg.Boundary.Source, ".shp")
		if err != nil {
			return eris.Wrap(err, "pipeline: resolve boundary source")
		}
		src.Boundary = path
		return nil
	})
	if err := g.Wait(); err != nil {
		return Sources{}, err
	}
	return src, nil
}

// Run resolves, loads, joins, classifies and builds the map.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	buildID := p.newID()
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("build_id", buildID))

	src, err := p.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("sources resolved", zap.String("tabular", src.Tabular), zap.String("boundary", src.Boundary))

	areas, err := loader.LoadAreas(ctx, src.Tabular, loader.AreaSchema{
		SheetName:   p.cfg.Tabular.SheetName,
		SheetIndex:  p.cfg.Tabular.SheetIndex,
		HeaderRow:   p.cfg.Tabular.HeaderRow,
		CodeColumn:  p.cfg.Tabular.CodeColumn,
		NameColumn:  p.cfg.Tabular.NameColumn,
		ValueColumn: p.cfg.Tabular.ValueColumn,
	})
	if err != nil {
		return nil, err
	}

	polygons, err := loader.LoadPolygons(src.Boundary, loader.PolygonSchema{
		CodeField: p.cfg.Boundary.CodeField,
		NameField: p.cfg.Boundary.NameField,
		Encoding:  p.cfg.Boundary.Encoding,
	})
	if err != nil {
		return nil, err
	}

	polygons, err = p.ensureWGS84(ctx, polygons)
	if err != nil {
		return nil, err
	}

	res, err := Build(p.cfg, buildID, polygons, areas)
	if err != nil {
		return nil, err
	}
	res.Sources = src

	log.Info("map built",
		zap.Int("features", len(res.Features)),
		zap.Int("matched", res.Join.Matched),
		zap.Int("unmatched", res.Join.Unmatched),
		zap.Int("no_data", res.NoData),
		zap.Int("bins", res.Classifier.Bins()),
	)
	return res, nil
}

func (p *Pipeline) ensureWGS84(ctx context.Context, polygons []model.PolygonRecord) ([]model.PolygonRecord, error) {
	if len(polygons) == 0 || polygons[0].CRS.IsWGS84() {
		return polygons, nil
	}
	crs := polygons[0].CRS
	if p.reprojector == nil {
		return nil, eris.Errorf("pipeline: boundary CRS %s is not WGS 84 and no reprojector is configured; convert the shapefile to EPSG:4326", crs)
	}
	out, err := p.reprojector.Reproject(ctx, polygons)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: reproject from %s", crs)
	}
	return out, nil
}
