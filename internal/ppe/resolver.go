package ppe

// ConflictPair declares that the present and absent states of a category
// are mutually exclusive for one subject.
type ConflictPair struct {
	Category Category
}

// DefaultConflictPairs is the conflict table of the shipped model: the
// detector regularly reports both "vest" and "no vest" on one person.
var DefaultConflictPairs = []ConflictPair{
	{Category: CategoryVest},
}

// Conflicts reports whether a and b are the opposite states of the pair's
// category.
func (p ConflictPair) Conflicts(a, b Semantics) bool {
	if a.Category != p.Category || b.Category != p.Category {
		return false
	}
	return (a.State == StatePresent && b.State == StateAbsent) ||
		(a.State == StateAbsent && b.State == StatePresent)
}

// ResolveHook is called with each pair the resolver settles.
type ResolveHook func(kept, dropped Candidate)

// Resolver removes overlapping candidates that contradict each other.
type Resolver struct {
	pairs     []ConflictPair
	onResolve ResolveHook
}

// NewResolver creates a Resolver for the given conflict table.
func NewResolver(pairs []ConflictPair, onResolve ResolveHook) *Resolver {
	return &Resolver{pairs: pairs, onResolve: onResolve}
}

func (r *Resolver) conflicting(a, b Semantics) bool {
	for _, p := range r.pairs {
		if p.Conflicts(a, b) {
			return true
		}
	}
	return false
}

// Resolve compares every pair of candidates. When two conflict and their
// boxes overlap, the lower-confidence one is dropped; on a tie the earlier
// one is kept. Conflicting candidates that do not overlap describe
// different subjects and are both kept. The result preserves input order
// and never contains a candidate that was not in the input.
func (r *Resolver) Resolve(cands []Candidate) []Candidate {
	removed := make([]bool, len(cands))

	for i := range cands {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if removed[j] {
				continue
			}
			a, b := cands[i], cands[j]
			if !r.conflicting(a.Semantics, b.Semantics) {
				continue
			}
			if a.Box.IntersectionArea(b.Box) <= 0 {
				continue
			}

			if a.Confidence >= b.Confidence {
				removed[j] = true
				r.resolved(a, b)
				continue
			}
			removed[i] = true
			r.resolved(b, a)
			break
		}
	}

	out := make([]Candidate, 0, len(cands))
	for i, c := range cands {
		if !removed[i] {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) resolved(kept, dropped Candidate) {
	if r.onResolve != nil {
		r.onResolve(kept, dropped)
	}
}
