package services

import (
	"fmt"
	"slices"
	"strings"
	"warehouse-allocation-service/internal/domain"
)

const (
	DefaultMaxCandidates = 24
	// Upper bound accepted from configuration; the search is exponential in
	// the worst case.
	HardMaxCandidates = 40
)

// A bin-resident package considered for loading.
type LoadCandidate struct {
	TrackingID string
	Size       int
	IsFragile  bool
	BinID      int
}

// LoadPlan is the winning selection, sorted by ascending tracking id.
type LoadPlan struct {
	Items           []LoadCandidate
	TotalSize       int
	FragileIncluded bool
	NodesVisited    int
}

// OptimizeLoad picks the subset of candidates that fills capacity best.
//
// Fragile candidates are all-or-nothing: the plan either carries every one of
// them or none. Two branches are solved exactly, fragile excluded and fragile
// included (standard items against the residual capacity). The larger total
// wins; ties go to the branch with more packages, then to the fragile branch.
func OptimizeLoad(capacity int, candidates []LoadCandidate, maxCandidates int) (LoadPlan, error) {
	if capacity <= 0 {
		return LoadPlan{}, fmt.Errorf("optimize load: %w: capacity must be positive, got %d", domain.ErrInvalidCapacity, capacity)
	}
	if maxCandidates <= 0 || maxCandidates > HardMaxCandidates {
		maxCandidates = DefaultMaxCandidates
	}
	if len(candidates) > maxCandidates {
		return LoadPlan{}, fmt.Errorf("optimize load: %w: %d candidates, limit %d", domain.ErrTooManyCandidates, len(candidates), maxCandidates)
	}

	var fragile, standard []LoadCandidate
	fragileTotal := 0
	for _, c := range candidates {
		if c.Size <= 0 {
			return LoadPlan{}, fmt.Errorf("optimize load: %w: %s has size %d", domain.ErrInvalidPackage, c.TrackingID, c.Size)
		}
		if c.IsFragile {
			fragile = append(fragile, c)
			fragileTotal += c.Size
		} else {
			standard = append(standard, c)
		}
	}

	// Descending size puts large items near the root, which tightens the
	// bound early. Tracking id keeps equal sizes in a stable order.
	slices.SortFunc(standard, func(a, b LoadCandidate) int {
		if a.Size != b.Size {
			return b.Size - a.Size
		}
		return strings.Compare(a.TrackingID, b.TrackingID)
	})

	without := bestFill(capacity, standard)
	plan := LoadPlan{
		Items:        without.items,
		TotalSize:    without.total,
		NodesVisited: without.nodes,
	}

	if len(fragile) > 0 && fragileTotal <= capacity {
		with := bestFill(capacity-fragileTotal, standard)
		plan.NodesVisited += with.nodes

		total := fragileTotal + with.total
		count := len(fragile) + len(with.items)
		if total > plan.TotalSize || (total == plan.TotalSize && count >= len(plan.Items)) {
			plan.Items = append(slices.Clone(fragile), with.items...)
			plan.TotalSize = total
			plan.FragileIncluded = true
		}
	}

	slices.SortFunc(plan.Items, func(a, b LoadCandidate) int { return strings.Compare(a.TrackingID, b.TrackingID) })
	if plan.Items == nil {
		plan.Items = []LoadCandidate{}
	}
	return plan, nil
}

type fill struct {
	items []LoadCandidate
	total int
	nodes int
}

// bestFill solves 0/1 subset-sum maximization over items (sorted by size
// descending) by depth-first branch and bound.
func bestFill(limit int, items []LoadCandidate) fill {
	if limit <= 0 || len(items) == 0 {
		return fill{}
	}

	// remaining[i] is the total size of items[i:].
	remaining := make([]int, len(items)+1)
	for i := len(items) - 1; i >= 0; i-- {
		remaining[i] = remaining[i+1] + items[i].Size
	}

	s := &fillSearch{
		items:     items,
		remaining: remaining,
		limit:     limit,
		chosen:    make([]int, 0, len(items)),
	}
	s.visit(0, 0)

	out := fill{total: s.best, nodes: s.nodes}
	for _, i := range s.bestSet {
		out.items = append(out.items, items[i])
	}
	return out
}

type fillSearch struct {
	items     []LoadCandidate
	remaining []int
	limit     int

	chosen  []int
	best    int
	bestSet []int
	nodes   int
}

// visit keeps the subset with the largest total, and among equal totals the
// one with the most items.
func (s *fillSearch) visit(i, sum int) {
	s.nodes++
	if sum > s.best || (sum == s.best && len(s.chosen) > len(s.bestSet)) {
		s.best = sum
		s.bestSet = slices.Clone(s.chosen)
	}
	if i == len(s.items) || !s.canImprove(i, sum) {
		return
	}

	if size := s.items[i].Size; sum+size <= s.limit {
		s.chosen = append(s.chosen, i)
		s.visit(i+1, sum+size)
		s.chosen = s.chosen[:len(s.chosen)-1]
	}
	s.visit(i+1, sum)
}

// canImprove reports whether extending the current subset with items[i:]
// could beat the best one found so far.
func (s *fillSearch) canImprove(i, sum int) bool {
	bound := min(s.limit, sum+s.remaining[i])
	switch {
	case bound > s.best:
		return true
	case bound < s.best:
		return false
	}
	return len(s.chosen)+s.maxExtra(i, s.limit-sum) > len(s.bestSet)
}

// maxExtra is the most items of items[i:] that fit in room together. Items
// are sorted by size descending, so the k smallest are the last k.
func (s *fillSearch) maxExtra(i, room int) int {
	n := len(s.items)
	k := 0
	for k < n-i && s.remaining[n-k-1] <= room {
		k++
	}
	return k
}
