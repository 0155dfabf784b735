// Package benchmark is the non-optimizing baseline assigner (C8), used for
// comparison against the constraint solver. Grounded on
// original_source/carbonshift_optimizer_updated.py::assign_requests_fixed,
// including its deliberately deadline-ignoring fixed-mode branch (spec.md
// §4.8, §9 Open Question (b) — preserved as observed, not "fixed").
package benchmark

import (
	"fmt"
	"math/rand"

	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

// Mode selects the benchmark's assignment policy.
type Mode string

const (
	ModeLow    Mode = "low"
	ModeMedium Mode = "medium"
	ModeHigh   Mode = "high"
	ModeNaive  Mode = "naive"
)

// Assign produces a fixed-strategy (or uniformly random, for "naive")
// assignment for requests, ignoring the error budget entirely (the
// benchmark has none).
//
// For mode == "naive": strategy is drawn uniformly at random per request;
// slot is drawn uniformly from [min(currentTick, upper), upper] where
// upper = min(deadline, Δ-1); if that range is empty, slot = upper.
//
// Otherwise every request uses strategy == string(mode) and slot
// (currentTick + 1) % Δ, ignoring deadline entirely — a deliberate stress
// baseline, not a bug.
func Assign(requests []domain.Request, mode Mode, horizon int, cat *catalog.Catalog, currentTick int, rng *rand.Rand) (domain.Assignment, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	strategies := cat.Strategies()
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies available")
	}

	assignment := make(domain.Assignment, len(requests))
	nextSlot := (currentTick + 1) % horizon

	for _, req := range requests {
		var strategyName string
		var slot int

		if mode == ModeNaive {
			strategyName = strategies[rng.Intn(len(strategies))].Name

			upper := req.Deadline
			if horizon-1 < upper {
				upper = horizon - 1
			}
			lower := currentTick
			if upper < lower {
				lower = upper
			}
			if lower > upper {
				slot = upper
			} else {
				slot = lower + rng.Intn(upper-lower+1)
			}
		} else {
			if _, ok := cat.ByName(string(mode)); !ok {
				return nil, fmt.Errorf("unknown benchmark mode %q: no strategy with that name", mode)
			}
			strategyName = string(mode)
			slot = nextSlot
		}

		assignment[req.ID] = domain.SlotStrategy{Slot: slot, Strategy: strategyName}
	}

	return assignment, nil
}
