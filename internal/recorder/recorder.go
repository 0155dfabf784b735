// Package recorder is the assignment recorder (C7): for each assignment
// produced by the solver (or the benchmark assigner), it emits one row per
// request plus a summary footer, matching the exact CSV shape
// original_source/carbonshift_optimizer_updated.py writes (same column
// order, same summary key names).
package recorder

import (
	"sort"

	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Row is one request's recorded assignment: {request_id, strategy, slot,
// emission, error}.
type Row struct {
	RequestID string
	Strategy  string
	Slot      int
	Emission  float64
	Error     int
}

// Summary is the per-run aggregate footer.
type Summary struct {
	TotalError       int
	SolverStatus     string
	TotalEmission    float64
	PerSlotEmissions []float64
	MeanError        float64
	SolveTimeSeconds float64
}

// Recorder persists one run's rows and summary. CSVRecorder and
// PostgresRecorder both satisfy this.
type Recorder interface {
	Record(rows []Row, summary Summary) error
}

// BuildRows computes one Row per request from assignment, the strategy
// catalog, and carbon intensity: emission = intensity[slot] *
// duration[strategy], exactly spec.md §4.7's formula. Rows are returned
// sorted ascending by request ID.
func BuildRows(assignment domain.Assignment, cat *catalog.Catalog, intensity catalog.Intensity) []Row {
	rows := make([]Row, 0, len(assignment))
	for reqID, ss := range assignment {
		strat, ok := cat.ByName(ss.Strategy)
		if !ok {
			continue
		}
		rows = append(rows, Row{
			RequestID: reqID,
			Strategy:  ss.Strategy,
			Slot:      ss.Slot,
			Emission:  intensity.At(ss.Slot) * float64(strat.Duration),
			Error:     strat.Error,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RequestID < rows[j].RequestID })
	return rows
}

// BuildSummary aggregates rows into the run's summary footer. mean_error is
// rounded to 4 decimal places, and is 0 if rows is empty, per spec.md §4.7.
func BuildSummary(rows []Row, horizon int, solverStatus string, solveTime float64) Summary {
	perSlot := make([]float64, horizon)
	totalError := 0
	errs := make([]float64, len(rows))
	for i, r := range rows {
		perSlot[r.Slot] += r.Emission
		totalError += r.Error
		errs[i] = float64(r.Error)
	}

	var totalEmission float64
	for _, e := range perSlot {
		totalEmission += e
	}

	var meanError float64
	if len(rows) > 0 {
		meanError = round4(stat.Mean(errs, nil))
	}

	return Summary{
		TotalError:       totalError,
		SolverStatus:     solverStatus,
		TotalEmission:    totalEmission,
		PerSlotEmissions: perSlot,
		MeanError:        meanError,
		SolveTimeSeconds: round4(solveTime),
	}
}

func round4(v float64) float64 {
	const scale = 10000.0
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
