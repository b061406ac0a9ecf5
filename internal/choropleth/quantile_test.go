package choropleth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/choropleth-cli/internal/model"
)

func floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = model.Float(v)
	}
	return out
}

func TestQuantileBreaks_EqualCount(t *testing.T) {
	t.Parallel()

	breaks, err := QuantileBreaks(floats(1, 2, 3, 4, 5, 6, 7, 8, 9), 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 7, 9}, breaks)
}

func TestQuantileBreaks_Interpolates(t *testing.T) {
	t.Parallel()

	breaks, err := QuantileBreaks(floats(0, 10), 4)
	require.NoError(t, err)
	require.Len(t, breaks, 5)
	assert.InDeltaSlice(t, []float64{0, 2.5, 5, 7.5, 10}, breaks, 1e-9)
}

func TestQuantileBreaks_SkipsNilAndNaN(t *testing.T) {
	t.Parallel()

	values := append(floats(4, 2, math.NaN()), nil, model.Float(0))
	breaks, err := QuantileBreaks(values, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4}, breaks)
}

func TestQuantileBreaks_CollapsesTies(t *testing.T) {
	t.Parallel()

	breaks, err := QuantileBreaks(floats(0, 0, 0, 0, 0, 0, 1, 2), 4)
	require.NoError(t, err)
	for i := 1; i < len(breaks); i++ {
		assert.Greater(t, breaks[i], breaks[i-1])
	}
	assert.Equal(t, 0.0, breaks[0])
	assert.Equal(t, 2.0, breaks[len(breaks)-1])
	assert.Less(t, len(breaks), 5)
}

func TestQuantileBreaks_SingleDistinctValue(t *testing.T) {
	t.Parallel()

	breaks, err := QuantileBreaks(floats(3, 3, 3), 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, breaks)

	c := &Classifier{Mode: ModeQuantile, Breaks: breaks}
	assert.Equal(t, 1, c.Bins())
	assert.Equal(t, model.Bin(0), c.Classify(model.Float(3)))
}

func TestQuantileBreaks_Errors(t *testing.T) {
	t.Parallel()

	_, err := QuantileBreaks(floats(1, 2), 0)
	require.Error(t, err)

	_, err = QuantileBreaks([]*float64{nil, nil}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no values")
}

func TestNewQuantile_TiesGoToLowerBin(t *testing.T) {
	t.Parallel()

	c, err := NewQuantile(floats(1, 2, 3, 4, 5, 6, 7, 8, 9), 4)
	require.NoError(t, err)
	assert.Equal(t, ModeQuantile, c.Mode)
	assert.Equal(t, 4, c.Bins())

	// 3 sits exactly on the first internal break.
	assert.Equal(t, model.Bin(0), c.Classify(model.Float(3)))
	assert.Equal(t, model.Bin(1), c.Classify(model.Float(4)))
	assert.Equal(t, model.Bin(3), c.Classify(model.Float(9)))
}
