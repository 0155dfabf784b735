package recorder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadCatalog(strings.NewReader("name,error,duration\nLow,5,2\nHigh,0,1\n"))
	require.NoError(t, err)
	return cat
}

func TestBuildRows_ComputesEmissionAndSortsByID(t *testing.T) {
	cat := testCatalog(t)
	intensity, err := catalog.NewIntensity([]float64{1, 2, 3}, 3)
	require.NoError(t, err)

	assignment := domain.Assignment{
		"zebra": {Slot: 0, Strategy: "Low"},
		"alpha": {Slot: 2, Strategy: "High"},
	}

	rows := BuildRows(assignment, cat, intensity)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0].RequestID)
	assert.Equal(t, "zebra", rows[1].RequestID)
	assert.Equal(t, 3.0, rows[0].Emission) // intensity[2]=3 * duration 1
	assert.Equal(t, 2.0, rows[1].Emission) // intensity[0]=1 * duration 2
}

func TestBuildRows_SkipsUnknownStrategy(t *testing.T) {
	cat := testCatalog(t)
	intensity, err := catalog.NewIntensity([]float64{1}, 1)
	require.NoError(t, err)

	assignment := domain.Assignment{"r1": {Slot: 0, Strategy: "Unknown"}}
	rows := BuildRows(assignment, cat, intensity)
	assert.Empty(t, rows)
}

func TestBuildSummary_AggregatesAcrossSlots(t *testing.T) {
	rows := []Row{
		{RequestID: "a", Slot: 0, Emission: 2, Error: 5},
		{RequestID: "b", Slot: 0, Emission: 3, Error: 0},
		{RequestID: "c", Slot: 1, Emission: 1, Error: 0},
	}
	summary := BuildSummary(rows, 2, "OPTIMAL", 1.23456)

	assert.Equal(t, 5, summary.TotalError)
	assert.Equal(t, "OPTIMAL", summary.SolverStatus)
	assert.Equal(t, 6.0, summary.TotalEmission)
	assert.Equal(t, []float64{5, 1}, summary.PerSlotEmissions)
	assert.InDelta(t, 1.6667, summary.MeanError, 0.001)
	assert.Equal(t, 1.2346, summary.SolveTimeSeconds)
}

func TestBuildSummary_EmptyRows(t *testing.T) {
	summary := BuildSummary(nil, 3, "OPTIMAL", 0)
	assert.Equal(t, 0.0, summary.MeanError)
	assert.Equal(t, []float64{0, 0, 0}, summary.PerSlotEmissions)
}
