package ppe

import (
	"image"
	"image/color"
	"math"
)

// Box is an axis-aligned bounding box in frame pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the box width, 0 for degenerate boxes.
func (b Box) Width() int {
	return max(0, b.X2-b.X1)
}

// Height returns the box height, 0 for degenerate boxes.
func (b Box) Height() int {
	return max(0, b.Y2-b.Y1)
}

// AspectRatio returns height / width. A zero-width box has an infinite ratio
// unless it also has zero height.
func (b Box) AspectRatio() float64 {
	w, h := b.Width(), b.Height()
	if w == 0 {
		if h == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return float64(h) / float64(w)
}

// Rect converts the box into an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// IntersectionArea returns the overlapping area of two boxes, 0 when they
// do not intersect on either axis.
func (b Box) IntersectionArea(o Box) int {
	w := min(b.X2, o.X2) - max(b.X1, o.X1)
	h := min(b.Y2, o.Y2) - max(b.Y1, o.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// RawDetection is one box reported by the detection model for a frame.
type RawDetection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Candidate is a detection that survived filtering, enriched for display.
type Candidate struct {
	ClassID    int
	Confidence float64
	Box        Box
	Label      string
	RawLabel   string
	Color      color.RGBA
	Semantics  Semantics
}

// ComplianceStats is the per-frame compliance summary.
type ComplianceStats struct {
	TotalPeople int `json:"total_people"`
	Violations  int `json:"violations"`
}
