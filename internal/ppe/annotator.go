package ppe

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	boxLineWidth   = 2
	labelFontSize  = 14
	labelOffset    = 6
	diagFontSize   = 22
	diagLineHeight = 34
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Annotator draws candidates onto frames.
type Annotator struct {
	labelFace font.Face
	diagFace  font.Face
}

// NewAnnotator creates an Annotator using the embedded Go font.
func NewAnnotator() *Annotator {
	return &Annotator{
		labelFace: truetype.NewFace(labelFont, &truetype.Options{Size: labelFontSize}),
		diagFace:  truetype.NewFace(labelFont, &truetype.Options{Size: diagFontSize}),
	}
}

// Annotate returns a copy of frame with each candidate's box and label drawn
// in its colour. Neither frame nor cands are modified.
func (a *Annotator) Annotate(frame image.Image, cands []Candidate) image.Image {
	dc := gg.NewContextForImage(frame)
	dc.SetFontFace(a.labelFace)
	dc.SetLineWidth(boxLineWidth)

	for _, c := range cands {
		r := c.Box.Rect()
		dc.SetColor(c.Color)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		y := float64(r.Min.Y - labelOffset)
		if y < labelFontSize {
			y = float64(r.Min.Y + labelFontSize + labelOffset)
		}
		dc.DrawString(c.Label, float64(r.Min.X), y)
	}
	return dc.Image()
}

// DrawDiagnostic returns a copy of frame with lines of red text in the top
// left corner. It is used when no detection model is available.
func (a *Annotator) DrawDiagnostic(frame image.Image, lines []string) image.Image {
	dc := gg.NewContextForImage(frame)
	dc.SetFontFace(a.diagFace)
	dc.SetColor(color.RGBA{R: 255, A: 255})
	for i, line := range lines {
		dc.DrawString(line, 50, float64(50+i*diagLineHeight))
	}
	return dc.Image()
}
