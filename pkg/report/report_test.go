package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/blendgen/pkg/catalog"
)

func entry(id int64, dx, dy, mag float64) catalog.Entry {
	return catalog.NewEntry(catalog.Record{ID: id, Mags: map[string]float64{"i": mag}}, dx, dy)
}

func testBlends() []catalog.Blend {
	return []catalog.Blend{
		{entry(1, 0.1, -0.2, 22)},
		{entry(2, 0.5, 0.5, 23.5), entry(3, -1.5, 0, 24.2)},
		{entry(4, 0, 0, 25)},
	}
}

func TestSummaryAdd(t *testing.T) {
	s := NewSummary("i", 3)
	s.Add(testBlends())

	assert.Equal(t, 3, s.Blends())
	assert.Equal(t, 4, s.Objects())
	assert.Equal(t, []int{2, 1, 0}, s.Multiplicity())
}

func TestSummaryMissingBand(t *testing.T) {
	s := NewSummary("z", 3)
	s.Add(testBlends())

	edges, counts := s.MagHistogram(4)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestMagHistogram(t *testing.T) {
	s := NewSummary("i", 3)
	s.Add(testBlends())

	edges, counts := s.MagHistogram(3)
	require.Len(t, edges, 4)
	require.Len(t, counts, 3)
	assert.Equal(t, 22.0, edges[0])
	assert.Equal(t, []float64{1, 1, 2}, counts)
}

func TestMagHistogramSingleValue(t *testing.T) {
	s := NewSummary("i", 1)
	s.Add([]catalog.Blend{{entry(1, 0, 0, 22)}, {entry(2, 0, 0, 22)}})

	_, counts := s.MagHistogram(2)
	assert.Equal(t, []float64{2, 0}, counts)
}

func TestRender(t *testing.T) {
	s := NewSummary("i", 3)
	s.Add(testBlends())

	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf, "test run"))
	html := buf.String()
	assert.True(t, strings.Contains(html, "test run"), "missing title")
	assert.True(t, strings.Contains(html, "echarts"), "missing chart script")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSummary("i", 2).Render(&buf, "empty"))
	assert.NotZero(t, buf.Len())
}
