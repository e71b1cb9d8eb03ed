package ppe

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Thresholds are the acceptance limits of the candidate filter.
type Thresholds struct {
	// DarkBrightness is the mean HSV value below which a head protection
	// detection is treated as hair or a head silhouette.
	DarkBrightness float64
	// MaxHeadAspect is the largest height/width ratio accepted for head
	// protection. Hats are wide or square; taller boxes are faces.
	MaxHeadAspect float64
	// HeadMinConfidence is the confidence floor for head protection.
	HeadMinConfidence float64
	// SmallMinConfidence is the confidence floor for gloves, glasses and masks.
	SmallMinConfidence float64
}

// DefaultThresholds returns the thresholds the shipped model is tuned for.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DarkBrightness:     70,
		MaxHeadAspect:      1.25,
		HeadMinConfidence:  0.80,
		SmallMinConfidence: 0.10,
	}
}

// Display colours.
var (
	ColorAbsent = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorPerson = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	ColorBoots  = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	ColorOK     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// Rule rejection names.
const (
	RuleHeadBrightness = "head_brightness"
	RuleHeadAspect     = "head_aspect"
	RuleHeadConfidence = "head_confidence"
	RuleSmallPPE       = "small_ppe_confidence"
)

// RuleInput is what a rule sees about one detection. Rules that sample the
// frame record the sample so it can be reported with a rejection.
type RuleInput struct {
	Frame     image.Image
	Detection RawDetection
	Sample    RegionSample
}

// Rule is one acceptance check. Rules only look at detections whose
// semantics they apply to.
type Rule struct {
	Name    string
	Applies func(Semantics) bool
	Reject  func(in *RuleInput) bool
}

// RejectHook is called for every detection a rule rejects.
type RejectHook func(rule string, in RuleInput)

// Filter turns raw detections into display-ready candidates. It keeps no
// per-frame state.
type Filter struct {
	catalog     *ClassCatalog
	sourceNames map[int]string
	rules       []Rule
	onReject    RejectHook
}

// NewFilter creates a Filter with the standard rule set.
// sourceNames are the class names reported by the detection source; they
// label class ids the catalog does not know.
func NewFilter(catalog *ClassCatalog, t Thresholds, sourceNames map[int]string, onReject RejectHook) *Filter {
	f := &Filter{
		catalog:     catalog,
		sourceNames: sourceNames,
		onReject:    onReject,
	}
	f.rules = StandardRules(t)
	return f
}

func isHeadProtection(s Semantics) bool {
	return s.Denotes(CategoryHead, StatePresent)
}

func isSmallPPE(s Semantics) bool {
	switch s.Category {
	case CategoryGloves, CategoryGlasses, CategoryMask:
		return true
	}
	return false
}

// StandardRules returns the head protection and small equipment rules in
// evaluation order.
func StandardRules(t Thresholds) []Rule {
	return []Rule{
		{
			Name:    RuleHeadBrightness,
			Applies: isHeadProtection,
			Reject: func(in *RuleInput) bool {
				in.Sample = SampleRegion(in.Frame, in.Detection.Box)
				return in.Sample.Empty() || in.Sample.MeanBrightness < t.DarkBrightness
			},
		},
		{
			Name:    RuleHeadAspect,
			Applies: isHeadProtection,
			Reject: func(in *RuleInput) bool {
				return in.Detection.Box.AspectRatio() > t.MaxHeadAspect
			},
		},
		{
			Name:    RuleHeadConfidence,
			Applies: isHeadProtection,
			Reject: func(in *RuleInput) bool {
				return in.Detection.Confidence < t.HeadMinConfidence
			},
		},
		{
			Name:    RuleSmallPPE,
			Applies: isSmallPPE,
			Reject: func(in *RuleInput) bool {
				return in.Detection.Confidence < t.SmallMinConfidence
			},
		},
	}
}

// Apply evaluates every detection independently and returns the survivors
// in input order. A rejection stops evaluation of that detection.
func (f *Filter) Apply(frame image.Image, dets []RawDetection) []Candidate {
	out := make([]Candidate, 0, len(dets))

	for _, d := range dets {
		name, sem := f.classify(d.ClassID)
		in := RuleInput{Frame: frame, Detection: d}
		if rule, rejected := f.evaluate(&in, sem); rejected {
			if f.onReject != nil {
				f.onReject(rule, in)
			}
			continue
		}
		out = append(out, newCandidate(d, name, sem))
	}
	return out
}

func (f *Filter) evaluate(in *RuleInput, sem Semantics) (string, bool) {
	for _, r := range f.rules {
		if !r.Applies(sem) {
			continue
		}
		if r.Reject(in) {
			return r.Name, true
		}
	}
	return "", false
}

// classify resolves the canonical name and semantics of a class id.
func (f *Filter) classify(id int) (string, Semantics) {
	if entry, ok := f.catalog.Lookup(id); ok {
		return entry.Name, entry.Semantics
	}
	name, ok := f.sourceNames[id]
	if !ok || name == "" {
		name = fmt.Sprintf("class_%d", id)
	}
	return name, InferSemantics(name)
}

func newCandidate(d RawDetection, name string, sem Semantics) Candidate {
	return Candidate{
		ClassID:    d.ClassID,
		Confidence: d.Confidence,
		Box:        d.Box,
		Label:      fmt.Sprintf("%s %.2f", name, d.Confidence),
		RawLabel:   strings.ToLower(name),
		Color:      colorFor(sem),
		Semantics:  sem,
	}
}

func colorFor(sem Semantics) color.RGBA {
	switch {
	case sem.IsAbsence():
		return ColorAbsent
	case sem.IsPerson():
		return ColorPerson
	case sem.Category == CategoryBoots:
		return ColorBoots
	default:
		return ColorOK
	}
}
