package pipeline

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/config"
	"github.com/sells-group/choropleth-cli/internal/model"
	"github.com/sells-group/choropleth-cli/internal/render"
)

// Build runs the in-memory stages on loaded records: join, breaks,
// classification, palette, legend and map assembly. Inputs are not modified.
func Build(cfg *config.Config, buildID string, polygons []model.PolygonRecord, areas []model.AreaRecord) (*Result, error) {
	features, stats := choropleth.Join(polygons, areas)

	classifier, err := NewClassifier(cfg.Classify, features)
	if err != nil {
		return nil, err
	}
	classified := classifier.ClassifyAll(features)

	palette, err := choropleth.NewPalette(cfg.Classify.Palette, classifier.Bins(), cfg.Classify.NoDataColor)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: palette")
	}
	counts := classifier.Counts(classified)
	legend := choropleth.Legend(classifier, palette, counts)

	popup, err := render.ParsePopup(cfg.Map.Popup)
	if err != nil {
		return nil, err
	}
	spec, err := render.NewBuilder(cfg.Map.Title).
		BuildID(buildID).
		Tiles(cfg.Map.Tiles.URL, cfg.Map.Tiles.Attribution).
		View(cfg.Map.Zoom).
		Style(StyleFrom(cfg.Map.Style)).
		Popup(popup, cfg.Tabular.ValueColumn).
		Layer(cfg.Map.Title, classified, palette.ColorOf).
		Legend(cfg.Map.LegendTitle, legend).
		Build()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build map")
	}

	return &Result{
		BuildID:    buildID,
		Features:   classified,
		Classifier: classifier,
		Palette:    palette,
		Legend:     legend,
		Join:       stats,
		NoData:     counts[len(counts)-1],
		Map:        spec,
	}, nil
}

// NewClassifier builds the classifier for the configured mode. Quantile
// breaks come from the values of the joined features; when none has a value
// the classifier has no breaks and every feature is no data.
func NewClassifier(cfg config.ClassifyConfig, features []model.JoinedFeature) (*choropleth.Classifier, error) {
	mode, err := choropleth.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if mode == choropleth.ModeFixed {
		c, err := choropleth.NewFixed(cfg.Breaks)
		return c, eris.Wrap(err, "pipeline: fixed breaks")
	}

	values := make([]*float64, len(features))
	present := 0
	for i, f := range features {
		values[i] = f.Value
		if f.Value != nil && !math.IsNaN(*f.Value) {
			present++
		}
	}
	if present == 0 {
		zap.L().Warn("pipeline: no joined values, every feature is no data",
			zap.String("component", "pipeline"),
			zap.Int("features", len(features)),
		)
		return &choropleth.Classifier{Mode: choropleth.ModeQuantile}, nil
	}
	c, err := choropleth.NewQuantile(values, cfg.Bins)
	return c, eris.Wrap(err, "pipeline: quantile breaks")
}

// StyleFrom converts the configured style, filling unset fields from
// render.DefaultStyle.
func StyleFrom(cfg config.StyleConfig) render.Style {
	s := render.DefaultStyle()
	if cfg.BorderColor != "" {
		s.BorderColor = cfg.BorderColor
	}
	if cfg.Weight > 0 {
		s.Weight = cfg.Weight
	}
	if cfg.LineOpacity > 0 {
		s.LineOpacity = cfg.LineOpacity
	}
	if cfg.FillOpacity > 0 {
		s.FillOpacity = cfg.FillOpacity
	}
	if cfg.HighlightColor != "" {
		s.Highlight.Color = cfg.HighlightColor
	}
	if cfg.HighlightWeight > 0 {
		s.Highlight.Weight = cfg.HighlightWeight
	}
	if cfg.HighlightFillOpacity > 0 {
		s.Highlight.FillOpacity = cfg.HighlightFillOpacity
	}
	return s
}
