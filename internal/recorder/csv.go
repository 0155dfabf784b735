package recorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVRecorder writes the assignment log format spec.md §6 specifies:
// header request_id,strategy,time_slot,emission,error, body sorted by
// request_id, a blank line, then key:value summary lines using the exact
// key names original_source/carbonshift_optimizer_updated.py writes.
type CSVRecorder struct {
	w io.Writer
}

// NewCSVRecorder wraps a writer (typically an os.File opened for the run's
// log).
func NewCSVRecorder(w io.Writer) *CSVRecorder {
	return &CSVRecorder{w: w}
}

// Record writes rows and summary to the underlying writer.
func (c *CSVRecorder) Record(rows []Row, summary Summary) error {
	cw := csv.NewWriter(c.w)

	if err := cw.Write([]string{"request_id", "strategy", "time_slot", "emission", "error"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.RequestID,
			r.Strategy,
			strconv.Itoa(r.Slot),
			formatFloat(r.Emission),
			strconv.Itoa(r.Error),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row for request %q: %w", r.RequestID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	if _, err := fmt.Fprintf(c.w, "\n"+
		"max_weighted_error_threshold: %d\n"+
		"solver_status: %s\n"+
		"all_emissions:%s\n"+
		"slot_emissions:%s\n"+
		"all_errors:%s\n"+
		"solve_time:%s\n",
		summary.TotalError,
		summary.SolverStatus,
		formatFloat(summary.TotalEmission),
		formatFloatSlice(summary.PerSlotEmissions),
		formatFloat(summary.MeanError),
		formatFloat(summary.SolveTimeSeconds),
	); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloatSlice(vals []float64) string {
	out := "["
	for i, v := range vals {
		if i > 0 {
			out += ", "
		}
		out += formatFloat(v)
	}
	return out + "]"
}
