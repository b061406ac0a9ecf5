// Package choropleth joins area attributes onto boundary polygons and
// classifies the joined values into color bins.
package choropleth

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// maxLoggedDuplicates caps how many duplicate codes are included in the warning.
const maxLoggedDuplicates = 10

// JoinStats summarizes a left join.
type JoinStats struct {
	Left       int      `json:"left" yaml:"left"`
	Right      int      `json:"right" yaml:"right"`
	Matched    int      `json:"matched" yaml:"matched"`
	Unmatched  int      `json:"unmatched" yaml:"unmatched"`   // left rows without a right match
	Orphans    int      `json:"orphans" yaml:"orphans"`       // right rows no left row asked for
	Duplicates int      `json:"duplicates" yaml:"duplicates"` // right rows overwritten by a later row with the same key
	DupKeys    []string `json:"dup_keys,omitempty" yaml:"dup_keys,omitempty"`
}

// JoinBy left-joins right onto left using typed key extractors. Every left
// element yields exactly one output element, in left order. Duplicate right
// keys resolve last-write-wins.
func JoinBy[L, R, O any](left []L, right []R, leftKey func(L) string, rightKey func(R) string, merge func(l L, r R, ok bool) O) ([]O, JoinStats) {
	stats := JoinStats{Left: len(left), Right: len(right)}

	index := make(map[string]R, len(right))
	for _, r := range right {
		k := strings.TrimSpace(rightKey(r))
		if _, seen := index[k]; seen {
			stats.Duplicates++
			if len(stats.DupKeys) < maxLoggedDuplicates {
				stats.DupKeys = append(stats.DupKeys, k)
			}
		}
		index[k] = r
	}

	used := make(map[string]struct{}, len(index))
	out := make([]O, 0, len(left))
	for _, l := range left {
		k := strings.TrimSpace(leftKey(l))
		r, ok := index[k]
		if ok {
			stats.Matched++
			used[k] = struct{}{}
		} else {
			stats.Unmatched++
		}
		out = append(out, merge(l, r, ok))
	}
	stats.Orphans = len(index) - len(used)

	return out, stats
}

// Join attaches area attributes to each polygon by code. The result has one
// feature per polygon, in polygon order, all in bin NoData until classified.
func Join(polygons []model.PolygonRecord, areas []model.AreaRecord) ([]model.JoinedFeature, JoinStats) {
	features, stats := JoinBy(polygons, areas,
		func(p model.PolygonRecord) string { return p.Code },
		func(a model.AreaRecord) string { return a.Code },
		mergeFeature,
	)

	log := zap.L().With(zap.String("component", "choropleth.join"))
	if stats.Duplicates > 0 {
		log.Warn("duplicate area codes, keeping last occurrence",
			zap.Int("duplicates", stats.Duplicates),
			zap.Strings("sample", stats.DupKeys),
		)
	}
	log.Debug("join complete",
		zap.Int("polygons", stats.Left),
		zap.Int("areas", stats.Right),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("orphans", stats.Orphans),
	)

	return features, stats
}

func mergeFeature(p model.PolygonRecord, a model.AreaRecord, ok bool) model.JoinedFeature {
	f := model.JoinedFeature{
		Code:     strings.TrimSpace(p.Code),
		Name:     p.Name,
		Geometry: p.Geometry,
		Bin:      model.NoData,
	}
	if !ok {
		return f
	}
	f.Matched = true
	if a.Name != "" {
		f.Name = a.Name
	}
	if a.Value != nil {
		v := *a.Value
		f.Value = &v
	}
	return f
}
