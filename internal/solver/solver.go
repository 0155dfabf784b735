// Package solver is the constraint solver driver (C4): it builds the
// integer decision model described in spec.md §4.4 — boolean x[b,s,t],
// a single-assignment constraint per block, an aggregate error-budget
// constraint, and an emission-minimizing objective — and solves it.
//
// original_source/carbonshift_optimizer_updated.py builds the identical
// model against Google's CP-SAT (ortools.sat.python.cp_model). This
// package re-expresses the same model as a pure-Go branch-and-bound search,
// so the backend has no external solver dependency, behind the
// Build/Solve/Assignment split spec.md §9's design note asks for so an
// alternate backend (a real CP-SAT or MIP binding) could be swapped in
// later without touching the rest of the scheduler.
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Status mirrors the CP-SAT status vocabulary the original model observed,
// kept for operator familiarity in the recorder's solver_status field.
type Status string

const (
	StatusOptimal      Status = "OPTIMAL"
	StatusFeasible     Status = "FEASIBLE"
	StatusInfeasible   Status = "INFEASIBLE"
	StatusModelInvalid Status = "MODEL_INVALID"
	StatusUnknown      Status = "UNKNOWN"
)

// DefaultWallClockBudget is the solver's default time limit, matching
// solver.parameters.max_time_in_seconds = 300.0 in the original model.
const DefaultWallClockBudget = 300 * time.Second

// candidate is one legal (strategy, slot) choice for a block: its index
// into the strategy catalog, its slot, and the resulting (cost, error).
type candidate struct {
	strategyIdx int
	slot        int
	cost        float64
	errorVal    int
}

// blockModel is one block's candidate set, sorted by ascending cost so the
// search tries the cheapest option first.
type blockModel struct {
	block      domain.Block
	candidates []candidate
}

// Model is the built decision model for one solve invocation.
type Model struct {
	strategies []domain.Strategy
	intensity  catalog.Intensity
	epsilon    float64
	blocks     []blockModel
}

// Build constructs the decision model for blocks against strategies and
// intensity, pruning variables for (b, s, t) where t > block.Deadline
// exactly as spec.md §4.4 describes ("prunes the model; equivalent to
// fixing them to 0").
func Build(blocks []domain.Block, strategies []domain.Strategy, intensity catalog.Intensity, epsilon float64) (*Model, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategies available", apierrors.ErrCatalogMalformed)
	}

	m := &Model{strategies: strategies, intensity: intensity, epsilon: epsilon}
	for _, b := range blocks {
		if b.Deadline < 0 {
			return nil, fmt.Errorf("%w: block deadline %d is negative", apierrors.ErrInvalidDeadline, b.Deadline)
		}
		if b.Deadline >= intensity.Len() {
			return nil, fmt.Errorf("%w: block deadline %d is beyond the horizon [0, %d)", apierrors.ErrNoFeasibleAssignment, b.Deadline, intensity.Len())
		}
		bm := blockModel{block: b}
		for si, s := range strategies {
			for t := 0; t <= b.Deadline && t < intensity.Len(); t++ {
				bm.candidates = append(bm.candidates, candidate{
					strategyIdx: si,
					slot:        t,
					cost:        intensity.At(t) * float64(s.Duration),
					errorVal:    s.Error,
				})
			}
		}
		if len(bm.candidates) == 0 {
			return nil, fmt.Errorf("%w: block with deadline %d has no admissible (strategy, slot) pair", apierrors.ErrNoFeasibleAssignment, b.Deadline)
		}
		sort.Slice(bm.candidates, func(i, j int) bool {
			if bm.candidates[i].cost != bm.candidates[j].cost {
				return bm.candidates[i].cost < bm.candidates[j].cost
			}
			return bm.candidates[i].errorVal < bm.candidates[j].errorVal
		})
		m.blocks = append(m.blocks, bm)
	}
	return m, nil
}

// Result is a solved model: the chosen candidate per block, the resulting
// assignment, the objective value, and the solver status to report in the
// recorder's summary footer.
type Result struct {
	Status         Status
	ObjectiveValue float64
	SolveTime      time.Duration
	perBlockChoice []candidate
	blocks         []blockModel
	strategies     []domain.Strategy
}

// Assignment projects the per-block (strategy, slot) choice onto every
// request in that block (spec.md §4.4 "Result projection"). Per-request
// emission within a block is identical — the block executes once under one
// strategy in one slot — so this assignment alone does not carry emission;
// the recorder (C7) recomputes it per row from (slot, strategy).
func (r *Result) Assignment() domain.Assignment {
	assignment := make(domain.Assignment)
	for bi, choice := range r.perBlockChoice {
		name := r.strategies[choice.strategyIdx].Name
		for _, req := range r.blocks[bi].block.Requests {
			assignment[req.ID] = domain.SlotStrategy{Slot: choice.slot, Strategy: name}
		}
	}
	return assignment
}

// Solve runs branch-and-bound search bounded by budget wall-clock time
// (default DefaultWallClockBudget if budget <= 0). On expiry, the best
// feasible assignment found so far is accepted per spec.md §5's
// cancellation rule; if none was found, ErrNoFeasibleAssignment is
// returned.
func (m *Model) Solve(ctx context.Context, budget time.Duration) (*Result, error) {
	if len(m.blocks) == 0 {
		return &Result{Status: StatusOptimal, blocks: m.blocks, strategies: m.strategies}, nil
	}
	if budget <= 0 {
		budget = DefaultWallClockBudget
	}

	deadline := time.Now().Add(budget)
	start := time.Now()

	// suffixMinError[i] = sum of the cheapest-error-candidate's error over
	// blocks[i:], used as a lower bound on the error a remaining suffix of
	// blocks must contribute, for pruning infeasible branches early.
	suffixMinError := make([]int, len(m.blocks)+1)
	for i := len(m.blocks) - 1; i >= 0; i-- {
		minErr := m.blocks[i].candidates[0].errorVal
		for _, c := range m.blocks[i].candidates {
			if c.errorVal < minErr {
				minErr = c.errorVal
			}
		}
		suffixMinError[i] = suffixMinError[i+1] + minErr
	}

	threshold := m.epsilon * float64(len(m.blocks))

	var (
		best     []candidate
		bestCost = -1.0
		timedOut bool
		current  = make([]candidate, len(m.blocks))
	)

	var search func(idx int, cumCost float64, cumError int) bool
	search = func(idx int, cumCost float64, cumError int) bool {
		select {
		case <-ctx.Done():
			timedOut = true
			return false
		default:
		}
		if time.Now().After(deadline) {
			timedOut = true
			return false
		}
		if bestCost >= 0 && cumCost >= bestCost {
			return true // prune: cannot beat current best
		}
		if float64(cumError+suffixMinError[idx]) > threshold {
			return true // prune: remaining blocks cannot meet the error budget
		}
		if idx == len(m.blocks) {
			if bestCost < 0 || cumCost < bestCost {
				bestCost = cumCost
				best = append([]candidate(nil), current[:idx]...)
			}
			return true
		}
		for _, c := range m.blocks[idx].candidates {
			current[idx] = c
			if !search(idx+1, cumCost+c.cost, cumError+c.errorVal) {
				return false
			}
		}
		return true
	}

	search(0, 0, 0)

	elapsed := time.Since(start)

	if best == nil {
		if timedOut {
			return nil, fmt.Errorf("%w: wall-clock budget exhausted with no feasible solution found", apierrors.ErrNoFeasibleAssignment)
		}
		return nil, fmt.Errorf("%w: error budget %v cannot be met by any combination of strategies", apierrors.ErrNoFeasibleAssignment, threshold)
	}

	status := StatusOptimal
	if timedOut {
		status = StatusFeasible
	}

	costs := make([]float64, len(best))
	for i, c := range best {
		costs[i] = c.cost
	}

	return &Result{
		Status:         status,
		ObjectiveValue: floats.Sum(costs),
		SolveTime:      elapsed,
		perBlockChoice: best,
		blocks:         m.blocks,
		strategies:     m.strategies,
	}, nil
}
