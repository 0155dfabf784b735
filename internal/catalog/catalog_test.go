package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
)

func TestLoadCatalog_Valid(t *testing.T) {
	csv := "name,error,duration\nLow,5,2\nHigh,0,4\n"
	cat, err := LoadCatalog(strings.NewReader(csv))
	require.NoError(t, err)

	strategies := cat.Strategies()
	assert.Len(t, strategies, 2)

	low, ok := cat.ByName("Low")
	require.True(t, ok)
	assert.Equal(t, 5, low.Error)
	assert.Equal(t, 2, low.Duration)
}

func TestLoadCatalog_BadHeader(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("foo,bar,baz\n"))
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestLoadCatalog_NegativeDuration(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("name,error,duration\nBad,1,-1\n"))
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestLoadCatalog_Empty(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("name,error,duration\n"))
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestNewIntensity_LengthMismatch(t *testing.T) {
	_, err := NewIntensity([]float64{1, 2, 3}, 4)
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestNewIntensity_Negative(t *testing.T) {
	_, err := NewIntensity([]float64{1, -2}, 2)
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestIntensity_AtAndAll(t *testing.T) {
	in, err := NewIntensity([]float64{10, 20, 30}, 3)
	require.NoError(t, err)

	assert.Equal(t, 20.0, in.At(1))
	assert.Equal(t, 3, in.Len())
	assert.Equal(t, []float64{10, 20, 30}, in.All())
}

func TestLoadIntensity(t *testing.T) {
	in, err := LoadIntensity(strings.NewReader(`[1, 2, 3]`), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, in.Len())
}
