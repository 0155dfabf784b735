package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

func strategies() []domain.Strategy {
	return []domain.Strategy{
		{Name: "Low", Error: 5, Duration: 1},
		{Name: "High", Error: 0, Duration: 2},
	}
}

func intensity(t *testing.T, values ...float64) catalog.Intensity {
	t.Helper()
	in, err := catalog.NewIntensity(values, len(values))
	require.NoError(t, err)
	return in
}

func TestSolve_TrivialSingleRequest(t *testing.T) {
	blocks := []domain.Block{{Requests: []domain.Request{{ID: "r1", Deadline: 2}}, Deadline: 2}}
	in := intensity(t, 10, 1, 5)

	model, err := Build(blocks, strategies(), in, 100)
	require.NoError(t, err)

	result, err := model.Solve(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, result.Status)

	assignment := result.Assignment()
	choice := assignment["r1"]
	// cheapest slot is 1 (intensity 1), either strategy admissible at
	// epsilon=100; Low is cheaper (duration 1 vs 2) so it should win.
	assert.Equal(t, 1, choice.Slot)
	assert.Equal(t, "Low", choice.Strategy)
}

func TestSolve_ErrorBudgetForcesHighStrategy(t *testing.T) {
	blocks := []domain.Block{{Requests: []domain.Request{{ID: "r1", Deadline: 2}}, Deadline: 2}}
	in := intensity(t, 10, 1, 5)

	// epsilon=0 forbids Low's error of 5, leaving only High (error 0).
	model, err := Build(blocks, strategies(), in, 0)
	require.NoError(t, err)

	result, err := model.Solve(context.Background(), time.Second)
	require.NoError(t, err)

	choice := result.Assignment()["r1"]
	assert.Equal(t, "High", choice.Strategy)
}

func TestSolve_DeadlineForcesEarlySlot(t *testing.T) {
	// deadline 0 means only slot 0 is admissible, even though slot 1 is
	// cheaper.
	blocks := []domain.Block{{Requests: []domain.Request{{ID: "r1", Deadline: 0}}, Deadline: 0}}
	in := intensity(t, 10, 1, 5)

	model, err := Build(blocks, strategies(), in, 100)
	require.NoError(t, err)

	result, err := model.Solve(context.Background(), time.Second)
	require.NoError(t, err)

	choice := result.Assignment()["r1"]
	assert.Equal(t, 0, choice.Slot)
}

func TestBuild_NoStrategies(t *testing.T) {
	in := intensity(t, 1, 2, 3)
	_, err := Build(nil, nil, in, 0)
	assert.ErrorIs(t, err, apierrors.ErrCatalogMalformed)
}

func TestBuild_BlockDeadlineBeyondHorizonIsInfeasible(t *testing.T) {
	in := intensity(t, 1, 2)
	blocks := []domain.Block{{Requests: []domain.Request{{ID: "r1", Deadline: 5}}, Deadline: 5}}
	_, err := Build(blocks, strategies(), in, 0)
	assert.ErrorIs(t, err, apierrors.ErrNoFeasibleAssignment)
}

func TestSolve_EmptyModel(t *testing.T) {
	model, err := Build(nil, strategies(), intensity(t, 1), 0)
	require.NoError(t, err)

	result, err := model.Solve(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, result.Status)
	assert.Empty(t, result.Assignment())
}

func TestSolve_RespectsCancellation(t *testing.T) {
	// A large enough block set that an already-cancelled context is
	// observed before a feasible solution is found.
	var blocks []domain.Block
	for i := 0; i < 50; i++ {
		blocks = append(blocks, domain.Block{
			Requests: []domain.Request{{ID: string(rune('a' + i)), Deadline: 1}},
			Deadline: 1,
		})
	}
	in := intensity(t, 1, 2)
	model, err := Build(blocks, strategies(), in, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = model.Solve(ctx, time.Second)
	assert.ErrorIs(t, err, apierrors.ErrNoFeasibleAssignment)
}
