// Package store implements the in-memory quad storage core: multiple
// index permutations over the same quad set, a scan-score heuristic for
// picking the best index for a bound pattern, single-writer/many-reader
// snapshot discipline, active-graph routing, and a batch paginator.
// Grounded on the teacher's internal/relation_index.go (index structure
// around a fixed key shape) and internal/federated_routing.go /
// internal/federated_pagination.go (routing decision and paginated
// multi-source fetch), generalized from the teacher's hot/warm/cold
// storage tiers to the GSPO/GPOS/GOSP quad-index permutations.
package store

// Component names one of the four quad positions.
type Component int

const (
	ComponentG Component = iota
	ComponentS
	ComponentP
	ComponentO
)

func (c Component) String() string {
	switch c {
	case ComponentG:
		return "G"
	case ComponentS:
		return "S"
	case ComponentP:
		return "P"
	case ComponentO:
		return "O"
	default:
		return "?"
	}
}

// IndexComponents is a permutation of (G, S, P, O) identifying one index.
type IndexComponents [4]Component

var (
	GSPO = IndexComponents{ComponentG, ComponentS, ComponentP, ComponentO}
	GPOS = IndexComponents{ComponentG, ComponentP, ComponentO, ComponentS}
	GOSP = IndexComponents{ComponentG, ComponentO, ComponentS, ComponentP}
)

// BoundMask reports which of (G, S, P, O) are bound in a lookup.
type BoundMask [4]bool

// ScanScore computes spec.md §4.4's scan-score heuristic: Σ 10^(arity−i)
// over the longest prefix of bound components under perm's order (1
// indexed), higher meaning a more selective index for this pattern.
func ScanScore(perm IndexComponents, bound BoundMask) int {
	const arity = 4
	score := 0
	for i, c := range perm {
		if !bound[c] {
			break
		}
		score += pow10(arity - (i + 1))
	}
	return score
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// BestIndex picks the candidate index with the highest ScanScore for
// bound, breaking ties by candidates' position in the slice (earlier
// wins), so callers can list their preferred order.
func BestIndex(candidates []IndexComponents, bound BoundMask) IndexComponents {
	best := candidates[0]
	bestScore := ScanScore(best, bound)
	for _, c := range candidates[1:] {
		if s := ScanScore(c, bound); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
