package ppe

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestSampleRegion(t *testing.T) {
	frame := uniformFrame(brightPixel)
	// paint the left half dark
	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth/2; x++ {
			frame.SetRGBA(x, y, color.RGBA{darkPixel, darkPixel, darkPixel, 255})
		}
	}

	tests := []struct {
		name       string
		box        Box
		wantPixels int
		wantMean   float64
	}{
		{"bright region", Box{400, 100, 410, 110}, 100, brightPixel},
		{"dark region", Box{10, 10, 20, 30}, 200, darkPixel},
		{"straddling halves", Box{310, 0, 330, 10}, 200, (darkPixel + brightPixel) / 2.0},
		{"clipped at edge", Box{630, 470, 660, 500}, 100, brightPixel},
		{"outside frame", Box{700, 500, 720, 520}, 0, 0},
		{"zero width", Box{10, 10, 10, 30}, 0, 0},
		{"inverted", Box{30, 30, 10, 10}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SampleRegion(frame, tt.box)
			if s.Pixels != tt.wantPixels {
				t.Fatalf("Expected %d pixels, got %d", tt.wantPixels, s.Pixels)
			}
			if s.Empty() != (tt.wantPixels == 0) {
				t.Errorf("Expected Empty()=%v", tt.wantPixels == 0)
			}
			if math.Abs(s.MeanBrightness-tt.wantMean) > floatEpsilon*1e3 {
				t.Errorf("Expected mean %f, got %f", tt.wantMean, s.MeanBrightness)
			}
		})
	}
}

func TestSampleRegion_NilFrame(t *testing.T) {
	if s := SampleRegion(nil, Box{0, 0, 10, 10}); !s.Empty() {
		t.Errorf("Expected empty sample, got %+v", s)
	}
}

func TestSampleRegion_OffsetBounds(t *testing.T) {
	frame := uniformFrame(darkPixel)
	for y := 100; y < 200; y++ {
		for x := 100; x < 200; x++ {
			frame.SetRGBA(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	sub := frame.SubImage(image.Rect(100, 100, 200, 200))

	// box coordinates are relative to the frame origin
	s := SampleRegion(sub, Box{0, 0, 10, 10})
	if s.Pixels != 100 {
		t.Fatalf("Expected 100 pixels, got %d", s.Pixels)
	}
	if math.Abs(s.MeanBrightness-200) > 0.01 {
		t.Errorf("Expected brightness of the max channel (200), got %f", s.MeanBrightness)
	}
}

func TestBoxGeometry(t *testing.T) {
	b := Box{10, 20, 50, 100}
	if b.Width() != 40 || b.Height() != 80 || b.AspectRatio() != 2 {
		t.Errorf("Unexpected geometry: w=%d h=%d ar=%f", b.Width(), b.Height(), b.AspectRatio())
	}
	if ar := (Box{10, 10, 10, 20}).AspectRatio(); !math.IsInf(ar, 1) {
		t.Errorf("Expected infinite aspect ratio, got %f", ar)
	}
	if ar := (Box{10, 10, 10, 10}).AspectRatio(); ar != 0 {
		t.Errorf("Expected zero aspect ratio, got %f", ar)
	}
	if w := (Box{50, 0, 10, 10}).Width(); w != 0 {
		t.Errorf("Expected inverted box width 0, got %d", w)
	}

	tests := []struct {
		a, b Box
		want int
	}{
		{Box{0, 0, 10, 10}, Box{5, 5, 15, 15}, 25},
		{Box{0, 0, 10, 10}, Box{10, 0, 20, 10}, 0},
		{Box{0, 0, 10, 10}, Box{0, 20, 10, 30}, 0},
		{Box{0, 0, 100, 100}, Box{10, 10, 20, 20}, 100},
	}
	for _, tt := range tests {
		if got := tt.a.IntersectionArea(tt.b); got != tt.want {
			t.Errorf("%v ∩ %v: expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
		if got := tt.b.IntersectionArea(tt.a); got != tt.want {
			t.Errorf("Intersection should be symmetric for %v and %v", tt.a, tt.b)
		}
	}
}
