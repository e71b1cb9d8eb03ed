// Package ppe turns raw per-frame detections into PPE compliance findings:
// candidate filtering, conflict resolution, violation classification and
// frame annotation.
package ppe

import (
	"strings"

	"github.com/pkg/errors"
)

// Category is the equipment (or subject) a detection class is about.
type Category int

const (
	CategoryNone Category = iota
	CategoryPerson
	CategoryHead
	CategoryVest
	CategoryGloves
	CategoryBoots
	CategoryGlasses
	CategoryMask
)

var categoryNames = map[Category]string{
	CategoryNone:    "none",
	CategoryPerson:  "person",
	CategoryHead:    "head",
	CategoryVest:    "vest",
	CategoryGloves:  "gloves",
	CategoryBoots:   "boots",
	CategoryGlasses: "glasses",
	CategoryMask:    "mask",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory converts a catalog category name into a Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return CategoryNone, errors.Errorf("unknown category %q", s)
}

// State says whether a class reports equipment being worn or missing.
type State int

const (
	StateNeutral State = iota
	StatePresent
	StateAbsent
)

var stateNames = map[State]string{
	StateNeutral: "neutral",
	StatePresent: "present",
	StateAbsent:  "absent",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseState converts a catalog state name into a State.
func ParseState(s string) (State, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for st, name := range stateNames {
		if name == s {
			return st, nil
		}
	}
	return StateNeutral, errors.Errorf("unknown state %q", s)
}

// Semantics is the meaning of a detection class. All downstream logic
// (filter rules, conflicts, violation counting) switches on it instead of
// on label text.
type Semantics struct {
	Category Category
	State    State
}

// IsPerson reports whether the class denotes a person.
func (s Semantics) IsPerson() bool {
	return s.Category == CategoryPerson
}

// IsAbsence reports whether the class denotes missing equipment.
func (s Semantics) IsAbsence() bool {
	return s.State == StateAbsent
}

// Denotes reports whether the class is the given category in the given state.
func (s Semantics) Denotes(c Category, st State) bool {
	return s.Category == c && s.State == st
}

var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"person", CategoryPerson},
	{"hardhat", CategoryHead},
	{"helmet", CategoryHead},
	{"head", CategoryHead},
	{"vest", CategoryVest},
	{"glove", CategoryGloves},
	{"boot", CategoryBoots},
	{"shoe", CategoryBoots},
	{"glass", CategoryGlasses},
	{"goggle", CategoryGlasses},
	{"mask", CategoryMask},
}

// InferSemantics derives Semantics from a canonical class name. It is only
// used while building a catalog, for entries that do not declare their
// category and state explicitly.
func InferSemantics(name string) Semantics {
	n := strings.ToLower(strings.TrimSpace(name))

	category := CategoryNone
	for _, kw := range categoryKeywords {
		if strings.Contains(n, kw.keyword) {
			category = kw.category
			break
		}
	}

	switch {
	case category == CategoryNone, category == CategoryPerson:
		return Semantics{Category: category, State: StateNeutral}
	case strings.HasPrefix(n, "no-"), strings.HasPrefix(n, "no "), strings.HasPrefix(n, "no_"),
		strings.Contains(n, "missing"), strings.HasPrefix(n, "without"):
		return Semantics{Category: category, State: StateAbsent}
	case category == CategoryHead && !strings.Contains(n, "hardhat") && !strings.Contains(n, "helmet"):
		// a bare "head" class is an unprotected head
		return Semantics{Category: category, State: StateAbsent}
	default:
		return Semantics{Category: category, State: StatePresent}
	}
}
