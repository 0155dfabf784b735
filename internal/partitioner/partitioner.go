// Package partitioner groups requests into β blocks by deadline, bounding
// the constraint solver's decision-variable count. Grounded on
// original_source/carbonshift_optimizer_updated.py::assign_requests_carbonshift's
// block-building step: sort by deadline, slice into ⌈|R|/β⌉-sized
// contiguous groups.
package partitioner

import (
	"math"
	"sort"

	"github.com/federicogiustii/carbonshift/internal/domain"
)

// Partition groups requests into blocks bounded by beta. If beta <= 0 or
// beta >= len(requests), every request becomes its own block (optimality
// preserved, maximum problem size). Otherwise requests are sorted ascending
// by deadline and sliced into contiguous groups of ⌈|R|/β⌉ (the last group
// may be smaller), which keeps each block's internal deadline spread small.
func Partition(requests []domain.Request, beta int) []domain.Block {
	if len(requests) == 0 {
		return nil
	}
	if beta <= 0 || beta >= len(requests) {
		blocks := make([]domain.Block, len(requests))
		for i, r := range requests {
			blocks[i] = domain.Block{Requests: []domain.Request{r}, Deadline: r.Deadline}
		}
		return blocks
	}

	sorted := make([]domain.Request, len(requests))
	copy(sorted, requests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Deadline < sorted[j].Deadline })

	groupSize := int(math.Ceil(float64(len(sorted)) / float64(beta)))
	if groupSize < 1 {
		groupSize = 1
	}

	var blocks []domain.Block
	for i := 0; i < len(sorted); i += groupSize {
		end := i + groupSize
		if end > len(sorted) {
			end = len(sorted)
		}
		group := sorted[i:end]
		blocks = append(blocks, domain.Block{Requests: append([]domain.Request(nil), group...), Deadline: minDeadline(group)})
	}
	return blocks
}

func minDeadline(requests []domain.Request) int {
	min := requests[0].Deadline
	for _, r := range requests[1:] {
		if r.Deadline < min {
			min = r.Deadline
		}
	}
	return min
}
