// Package property holds generator-driven tests of the universal invariants
// the scheduling pipeline must hold regardless of input shape, modeled on
// tests/property/consensus_properties_test.go's gopter.NewProperties
// layout.
package property

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/benchmark"
	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
	"github.com/federicogiustii/carbonshift/internal/partitioner"
	"github.com/federicogiustii/carbonshift/internal/solver"
)

const horizon = 6

func fixedStrategies() []domain.Strategy {
	return []domain.Strategy{
		{Name: "low", Error: 4, Duration: 1},
		{Name: "mid", Error: 2, Duration: 2},
		{Name: "high", Error: 0, Duration: 3},
	}
}

func fixedIntensity(t *testing.T) catalog.Intensity {
	in, err := catalog.NewIntensity([]float64{9, 4, 7, 1, 6, 2}, horizon)
	require.NoError(t, err)
	return in
}

// genRequests builds 5 requests with deadlines in [0, horizon).
func genRequests() gopter.Gen {
	return gen.SliceOfN(5, gen.IntRange(0, horizon-1)).Map(func(deadlines []int) []domain.Request {
		out := make([]domain.Request, len(deadlines))
		for i, d := range deadlines {
			out[i] = domain.Request{ID: string(rune('a' + i)), Deadline: d}
		}
		return out
	})
}

// catalogFromStrategies builds a Catalog the same way a config-driven CSV
// load would, without a file on disk, so generator-driven tests can pair it
// with whatever strategy set a property needs.
func catalogFromStrategies(t *testing.T, strategies []domain.Strategy) *catalog.Catalog {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("name,error,duration\n")
	for _, s := range strategies {
		fmt.Fprintf(&sb, "%s,%d,%d\n", s.Name, s.Error, s.Duration)
	}
	cat, err := catalog.LoadCatalog(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return cat
}

func solve(t *testing.T, requests []domain.Request, beta int, epsilon float64) *solver.Result {
	t.Helper()
	blocks := partitioner.Partition(requests, beta)
	model, err := solver.Build(blocks, fixedStrategies(), fixedIntensity(t), epsilon)
	require.NoError(t, err)
	result, err := model.Solve(context.Background(), 2*time.Second)
	require.NoError(t, err)
	return result
}

func TestSchedulerProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property-based tests in short mode")
	}

	properties := gopter.NewProperties(nil)

	properties.Property("DeadlineRespected", prop.ForAll(
		func(requests []domain.Request) bool {
			result := solve(t, requests, 2, 100)
			assignment := result.Assignment()
			for _, r := range requests {
				if assignment[r.ID].Slot > r.Deadline {
					return false
				}
			}
			return true
		},
		genRequests(),
	))

	properties.Property("ExactlyOne", prop.ForAll(
		func(requests []domain.Request) bool {
			result := solve(t, requests, 2, 100)
			assignment := result.Assignment()
			if len(assignment) != len(requests) {
				return false
			}
			for _, r := range requests {
				if _, ok := assignment[r.ID]; !ok {
					return false
				}
			}
			return true
		},
		genRequests(),
	))

	properties.Property("ErrorBudgetRespected", prop.ForAll(
		func(requests []domain.Request) bool {
			epsilon := 1.5
			blocks := partitioner.Partition(requests, 2)
			result := solve(t, requests, 2, epsilon)
			assignment := result.Assignment()

			strategiesByName := make(map[string]domain.Strategy)
			for _, s := range fixedStrategies() {
				strategiesByName[s.Name] = s
			}

			totalError := 0
			for _, blk := range blocks {
				// every request in a block shares its choice; sample the first.
				choice := assignment[blk.Requests[0].ID]
				totalError += strategiesByName[choice.Strategy].Error
			}
			return float64(totalError) <= epsilon*float64(len(blocks))+1e-9
		},
		genRequests(),
	))

	properties.Property("MonotonicEpsilonNeverIncreasesObjective", prop.ForAll(
		func(requests []domain.Request) bool {
			if len(requests) == 0 {
				return true
			}
			low := solve(t, requests, 2, 0.5)
			high := solve(t, requests, 2, 5.0)
			return high.ObjectiveValue <= low.ObjectiveValue+1e-9
		},
		genRequests(),
	))

	properties.Property("MonotonicBetaCoarserNeverBeatsFiner", prop.ForAll(
		func(requests []domain.Request) bool {
			if len(requests) == 0 {
				return true
			}
			fine := solve(t, requests, len(requests), 100)
			coarse := solve(t, requests, 1, 100)
			return coarse.ObjectiveValue >= fine.ObjectiveValue-1e-9
		},
		genRequests(),
	))

	properties.Property("BenchmarkFixedModeIgnoresDeadline", prop.ForAll(
		func(requests []domain.Request, currentTick int) bool {
			cat := catalogFromStrategies(t, fixedStrategies())
			assignment, err := benchmark.Assign(requests, benchmark.ModeHigh, horizon, cat, currentTick, nil)
			if err != nil {
				return false
			}
			want := (currentTick + 1) % horizon
			for _, r := range requests {
				choice := assignment[r.ID]
				if choice.Slot != want || choice.Strategy != "high" {
					return false
				}
			}
			return true
		},
		genRequests(),
		gen.IntRange(0, horizon-1),
	))

	properties.TestingRun(t)
}
