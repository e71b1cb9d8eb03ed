package ppe

import "testing"

func TestInferSemantics(t *testing.T) {
	tests := []struct {
		name string
		want Semantics
	}{
		{"Person", Semantics{CategoryPerson, StateNeutral}},
		{"Hardhat", Semantics{CategoryHead, StatePresent}},
		{"helmet", Semantics{CategoryHead, StatePresent}},
		{"NO-Hardhat", Semantics{CategoryHead, StateAbsent}},
		{"no_helmet", Semantics{CategoryHead, StateAbsent}},
		{"head", Semantics{CategoryHead, StateAbsent}},
		{"Safety Vest", Semantics{CategoryVest, StatePresent}},
		{"NO-Safety Vest", Semantics{CategoryVest, StateAbsent}},
		{"no vest", Semantics{CategoryVest, StateAbsent}},
		{"missing gloves", Semantics{CategoryGloves, StateAbsent}},
		{"without mask", Semantics{CategoryMask, StateAbsent}},
		{"Safety Boot", Semantics{CategoryBoots, StatePresent}},
		{"safety shoes", Semantics{CategoryBoots, StatePresent}},
		{"goggles", Semantics{CategoryGlasses, StatePresent}},
		{"Safety Glasses", Semantics{CategoryGlasses, StatePresent}},
		{"ladder", Semantics{CategoryNone, StateNeutral}},
		{"no-ladder", Semantics{CategoryNone, StateNeutral}},
		{"  MASK ", Semantics{CategoryMask, StatePresent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferSemantics(tt.name); got != tt.want {
				t.Errorf("InferSemantics(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseCategoryAndState(t *testing.T) {
	for c := CategoryNone; c <= CategoryMask; c++ {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}
	for s := StateNeutral; s <= StateAbsent; s++ {
		got, err := ParseState(" " + s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}

	if _, err := ParseCategory("hat"); err == nil {
		t.Error("Expected an error for an unknown category")
	}
	if _, err := ParseState("yes"); err == nil {
		t.Error("Expected an error for an unknown state")
	}
	if Category(99).String() != "unknown" || State(99).String() != "unknown" {
		t.Error("Expected unknown for out of range values")
	}
}
