package ppe

import (
	"image"
	"image/color"
	"testing"
)

func TestEngine_EquippedPerson(t *testing.T) {
	e := NewEngine(DefaultCatalog())

	res := e.Process(uniformFrame(brightPixel), []RawDetection{
		det(idPerson, 0.9, 100, 50, 250, 450),
		det(idHardhat, 0.85, 140, 50, 200, 110),
		det(idVest, 0.7, 110, 180, 240, 320),
	})

	if res.Err != nil {
		t.Fatalf("Unexpected error: %v", res.Err)
	}
	want := ComplianceStats{TotalPeople: 1, Violations: 0}
	if res.Stats != want {
		t.Errorf("Expected %+v, got %+v", want, res.Stats)
	}
	if len(res.Candidates) != 3 || res.Filtered != 3 {
		t.Errorf("Expected 3 candidates, got %d (filtered %d)", len(res.Candidates), res.Filtered)
	}
}

func TestEngine_PersonWithoutEvidence(t *testing.T) {
	e := NewEngine(DefaultCatalog())

	res := e.Process(uniformFrame(brightPixel), []RawDetection{det(idPerson, 0.9, 100, 50, 250, 450)})

	want := ComplianceStats{TotalPeople: 1, Violations: 2}
	if res.Stats != want {
		t.Errorf("Expected %+v, got %+v", want, res.Stats)
	}
}

func TestEngine_VestConflictCountedOnce(t *testing.T) {
	e := NewEngine(DefaultCatalog())

	res := e.Process(uniformFrame(brightPixel), []RawDetection{
		det(idPerson, 0.9, 100, 50, 250, 450),
		det(idHardhat, 0.85, 140, 50, 200, 110),
		det(idNoVest, 0.8, 110, 180, 240, 320),
		det(idVest, 0.6, 110, 180, 240, 320),
	})

	if res.Filtered != 4 {
		t.Fatalf("Expected 4 filtered candidates, got %d", res.Filtered)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("Expected 3 resolved candidates, got %d", len(res.Candidates))
	}
	for _, c := range res.Candidates {
		if c.ClassID == idVest {
			t.Error("Lower-confidence vest should have been dropped")
		}
	}
	if res.Stats.Violations != 1 {
		t.Errorf("Expected 1 vest violation, got %d", res.Stats.Violations)
	}
}

func TestEngine_DarkHardhatNeverACandidate(t *testing.T) {
	var rejected []string
	e := NewEngine(DefaultCatalog(), WithRejectHook(func(rule string, _ RuleInput) {
		rejected = append(rejected, rule)
	}))

	res := e.Process(uniformFrame(darkPixel), []RawDetection{
		det(idPerson, 0.9, 100, 50, 250, 450),
		det(idHardhat, 0.95, 140, 50, 200, 110),
		det(idVest, 0.7, 110, 180, 240, 320),
	})

	for _, c := range res.Candidates {
		if c.ClassID == idHardhat {
			t.Fatal("Dark hardhat should not be a candidate")
		}
	}
	if len(rejected) != 1 || rejected[0] != RuleHeadBrightness {
		t.Errorf("Expected one brightness rejection, got %v", rejected)
	}
	// missing hardhat inferred from silence
	if res.Stats.Violations != 1 {
		t.Errorf("Expected 1 violation, got %d", res.Stats.Violations)
	}
}

func TestEngine_CountsNeverGrow(t *testing.T) {
	e := NewEngine(DefaultCatalog())
	frame := uniformFrame(brightPixel)

	for n := 0; n < 20; n++ {
		dets := make([]RawDetection, 0, n)
		for i := 0; i < n; i++ {
			id := i % DefaultCatalog().Len()
			x := (i * 37) % 500
			dets = append(dets, det(id, float64(i%10)/10, x, 40, x+60+i, 120))
		}

		res := e.Process(frame, dets)
		if res.Filtered > len(dets) || len(res.Candidates) > res.Filtered {
			t.Fatalf("Counts grew: raw %d, filtered %d, resolved %d", len(dets), res.Filtered, len(res.Candidates))
		}
	}
}

func TestEngine_AnnotatesCopy(t *testing.T) {
	e := NewEngine(DefaultCatalog())
	frame := uniformFrame(brightPixel)

	res := e.Process(frame, []RawDetection{det(idNoVest, 0.9, 100, 100, 200, 200)})

	if res.Frame == frame {
		t.Fatal("Expected a new frame")
	}
	if res.Frame.Bounds() != frame.Bounds() {
		t.Errorf("Expected bounds %v, got %v", frame.Bounds(), res.Frame.Bounds())
	}
	if frame.RGBAAt(100, 150) != (color.RGBA{brightPixel, brightPixel, brightPixel, 255}) {
		t.Error("Input frame should not be modified")
	}
}

func TestEngine_RecoversFromFaults(t *testing.T) {
	e := NewEngine(DefaultCatalog(), WithRejectHook(func(string, RuleInput) {
		panic("hook failure")
	}))
	frame := uniformFrame(darkPixel)

	res := e.Process(frame, []RawDetection{
		det(idPerson, 0.9, 100, 50, 250, 450),
		det(idHardhat, 0.95, 140, 50, 200, 110),
	})

	if res.Err == nil {
		t.Fatal("Expected an error")
	}
	if len(res.Candidates) != 0 || res.Stats != (ComplianceStats{}) {
		t.Errorf("Expected no candidates and zero stats, got %d %+v", len(res.Candidates), res.Stats)
	}
	if res.Frame == nil || res.Frame.Bounds() != frame.Bounds() {
		t.Error("Expected an unannotated copy of the frame")
	}
}

func TestEngine_NilFrame(t *testing.T) {
	e := NewEngine(DefaultCatalog())

	res := e.Process(nil, []RawDetection{det(idPerson, 0.9, 0, 0, 10, 10)})

	if res.Err == nil {
		t.Error("Expected an error for a nil frame")
	}
	if res.Stats != (ComplianceStats{}) {
		t.Errorf("Expected zero stats, got %+v", res.Stats)
	}
}

func TestEngine_Degraded(t *testing.T) {
	e := NewEngine(DefaultCatalog())
	frame := uniformFrame(0)

	res := e.Degraded(frame, "models/best.onnx not found")

	if res.Stats != (ComplianceStats{}) || len(res.Candidates) != 0 {
		t.Errorf("Expected zero stats and no candidates, got %+v", res)
	}
	if res.Frame == nil {
		t.Fatal("Expected a frame")
	}
	if !hasReddishPixel(res.Frame, image.Rect(40, 20, 400, 100)) {
		t.Error("Expected diagnostic overlay to be drawn")
	}
	if hasReddishPixel(frame, frame.Bounds()) {
		t.Error("Input frame should not be modified")
	}
}

func TestEngine_SourceNamesAndOptions(t *testing.T) {
	catalog := NewClassCatalog(map[int]ClassEntry{
		0: {Name: "person", Semantics: Semantics{CategoryPerson, StateNeutral}},
	})
	e := NewEngine(catalog,
		WithSourceNames(map[int]string{1: "helmet", 2: "no-helmet"}),
		WithRequired(CategoryHead),
		WithConflictPairs([]ConflictPair{{Category: CategoryHead}}),
		WithThresholds(Thresholds{DarkBrightness: 10, MaxHeadAspect: 2, HeadMinConfidence: 0.5, SmallMinConfidence: 0.1}),
	)

	res := e.Process(uniformFrame(darkPixel), []RawDetection{
		det(0, 0.9, 0, 0, 100, 300),
		det(1, 0.6, 10, 0, 60, 60),
		det(2, 0.7, 10, 0, 60, 60),
	})

	if len(res.Candidates) != 2 {
		t.Fatalf("Expected helmet conflict to be resolved, got %d candidates", len(res.Candidates))
	}
	want := ComplianceStats{TotalPeople: 1, Violations: 1}
	if res.Stats != want {
		t.Errorf("Expected %+v, got %+v", want, res.Stats)
	}
}

func hasReddishPixel(img image.Image, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr>>8 > 128 && cg>>8 < 64 && cb>>8 < 64 {
				return true
			}
		}
	}
	return false
}
