package ppe

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
)

// RegionSample holds simple appearance statistics of a box region.
type RegionSample struct {
	Pixels         int
	MeanBrightness float64 // HSV value, 0-255
}

// Empty reports whether no pixel was sampled.
func (s RegionSample) Empty() bool {
	return s.Pixels == 0
}

// SampleRegion extracts the pixels of box from frame and computes their mean
// brightness. Box coordinates are relative to the frame origin. The box is
// clipped to the frame; degenerate boxes and boxes lying outside the frame
// produce an empty sample.
func SampleRegion(frame image.Image, box Box) RegionSample {
	if frame == nil || box.X2 <= box.X1 || box.Y2 <= box.Y1 {
		return RegionSample{}
	}

	bounds := frame.Bounds()
	region := box.Rect().Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return RegionSample{}
	}

	values := make(stats.Float64Data, 0, region.Dx()*region.Dy())
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			c, ok := colorful.MakeColor(frame.At(x, y))
			if !ok {
				// fully transparent pixel
				values = append(values, 0)
				continue
			}
			_, _, v := c.Hsv()
			values = append(values, v*255)
		}
	}

	mean, err := values.Mean()
	if err != nil {
		return RegionSample{}
	}
	return RegionSample{Pixels: len(values), MeanBrightness: mean}
}
