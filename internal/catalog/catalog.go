// Package catalog loads the immutable strategy table and exposes read-only
// access to it and to the per-invocation carbon-intensity sequence.
//
// The strategy table is loaded once at startup from a CSV source with header
// name,error,duration (the same schema original_source/service_clockML.py's
// load_strategy_costs reads from strategies.csv); it never mutates after
// load.
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

// Catalog is the immutable, process-lifetime strategy table.
type Catalog struct {
	strategies []domain.Strategy
	byName     map[string]domain.Strategy
}

// LoadCatalog reads a CSV strategy table (header: name,error,duration) and
// validates that no duration or error is negative. Fails with
// ErrCatalogMalformed on any validation error.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", apierrors.ErrCatalogMalformed, err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	c := &Catalog{byName: make(map[string]domain.Strategy)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading row: %v", apierrors.ErrCatalogMalformed, err)
		}
		strat, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		c.strategies = append(c.strategies, strat)
		c.byName[strat.Name] = strat
	}

	if len(c.strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategies defined", apierrors.ErrCatalogMalformed)
	}
	return c, nil
}

func validateHeader(header []string) error {
	want := []string{"name", "error", "duration"}
	if len(header) != len(want) {
		return fmt.Errorf("%w: expected header %v, got %v", apierrors.ErrCatalogMalformed, want, header)
	}
	for i, col := range want {
		if header[i] != col {
			return fmt.Errorf("%w: expected column %q at position %d, got %q", apierrors.ErrCatalogMalformed, col, i, header[i])
		}
	}
	return nil
}

func parseRow(row []string) (domain.Strategy, error) {
	if len(row) != 3 {
		return domain.Strategy{}, fmt.Errorf("%w: expected 3 columns, got %d", apierrors.ErrCatalogMalformed, len(row))
	}
	name := row[0]
	errVal, err := strconv.Atoi(row[1])
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("%w: strategy %q: invalid error %q: %v", apierrors.ErrCatalogMalformed, name, row[1], err)
	}
	duration, err := strconv.Atoi(row[2])
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("%w: strategy %q: invalid duration %q: %v", apierrors.ErrCatalogMalformed, name, row[2], err)
	}
	if errVal < 0 {
		return domain.Strategy{}, fmt.Errorf("%w: strategy %q: negative error %d", apierrors.ErrCatalogMalformed, name, errVal)
	}
	if duration < 0 {
		return domain.Strategy{}, fmt.Errorf("%w: strategy %q: negative duration %d", apierrors.ErrCatalogMalformed, name, duration)
	}
	return domain.Strategy{Name: name, Error: errVal, Duration: duration}, nil
}

// Strategies returns the ordered list of known strategies.
func (c *Catalog) Strategies() []domain.Strategy {
	out := make([]domain.Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// ByName looks up a strategy by name.
func (c *Catalog) ByName(name string) (domain.Strategy, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Intensity is a slot-indexed, process-lifetime-immutable-per-invocation
// carbon intensity sequence of length Δ, supplied to the solver per
// invocation (it may differ between invocations, unlike the strategy
// table).
type Intensity struct {
	values []float64
}

// NewIntensity validates and wraps a carbon-intensity sequence. Every value
// must be non-negative; horizon is the expected length Δ.
func NewIntensity(values []float64, horizon int) (Intensity, error) {
	if len(values) != horizon {
		return Intensity{}, fmt.Errorf("%w: intensity length %d does not match horizon %d", apierrors.ErrCatalogMalformed, len(values), horizon)
	}
	for t, v := range values {
		if v < 0 {
			return Intensity{}, fmt.Errorf("%w: negative intensity %v at slot %d", apierrors.ErrCatalogMalformed, v, t)
		}
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	return Intensity{values: cp}, nil
}

// At returns the carbon intensity at slot t.
func (in Intensity) At(t int) float64 {
	return in.values[t]
}

// Len returns Δ, the planning horizon in slots.
func (in Intensity) Len() int {
	return len(in.values)
}

// All returns a copy of the full intensity sequence.
func (in Intensity) All() []float64 {
	out := make([]float64, len(in.values))
	copy(out, in.values)
	return out
}

// LoadIntensity reads a JSON array of per-slot carbon intensity values
// (the shape original_source/service_clockML.py reads from
// carbon_intensity.json) and wraps it via NewIntensity.
func LoadIntensity(r io.Reader, horizon int) (Intensity, error) {
	var values []float64
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return Intensity{}, fmt.Errorf("%w: decoding intensity sequence: %v", apierrors.ErrCatalogMalformed, err)
	}
	return NewIntensity(values, horizon)
}
