package ppe

import "github.com/samber/lo"

// DefaultRequired lists the equipment every person in the frame must wear.
var DefaultRequired = []Category{CategoryHead, CategoryVest}

// Classifier derives compliance statistics from resolved candidates.
//
// Violations are counted at frame level: equipment is not attributed to a
// particular person, so a frame with several people and one hard hat counts
// no implicit head violation.
type Classifier struct {
	required []Category
}

// NewClassifier creates a Classifier. With no categories given it uses
// DefaultRequired.
func NewClassifier(required ...Category) *Classifier {
	if len(required) == 0 {
		required = DefaultRequired
	}
	return &Classifier{required: required}
}

// Classify counts people and violations.
//
// Explicit violations: one per candidate reporting missing equipment.
// Implicit violations: when at least one person is present, one per required
// category with neither a present nor an absent candidate. The two counts
// are added.
func (c *Classifier) Classify(cands []Candidate) ComplianceStats {
	people := lo.CountBy(cands, func(cand Candidate) bool {
		return cand.Semantics.IsPerson()
	})

	violations := lo.CountBy(cands, func(cand Candidate) bool {
		return cand.Semantics.IsAbsence()
	})

	if people > 0 {
		for _, category := range c.required {
			if !c.hasEvidence(cands, category) {
				violations++
			}
		}
	}

	return ComplianceStats{TotalPeople: people, Violations: violations}
}

// hasEvidence reports whether any candidate says the category is worn or missing.
func (c *Classifier) hasEvidence(cands []Candidate, category Category) bool {
	return lo.ContainsBy(cands, func(cand Candidate) bool {
		return cand.Semantics.Denotes(category, StatePresent) ||
			cand.Semantics.Denotes(category, StateAbsent)
	})
}
