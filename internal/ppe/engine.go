package ppe

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// DegradedMessage is the first overlay line drawn when no model is loaded.
const DegradedMessage = "DETECTION MODEL NOT LOADED"

// Result is everything the engine produces for one frame.
type Result struct {
	Frame      image.Image
	Candidates []Candidate
	Stats      ComplianceStats
	// Filtered is the number of candidates left before conflict resolution.
	Filtered int
	// Err is set when processing failed and the result was degraded to
	// "no candidates this frame".
	Err error
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	thresholds  Thresholds
	sourceNames map[int]string
	pairs       []ConflictPair
	required    []Category
	onReject    RejectHook
	onResolve   ResolveHook
}

// WithThresholds overrides DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(o *engineOptions) { o.thresholds = t }
}

// WithSourceNames sets the class names reported by the detection source.
func WithSourceNames(names map[int]string) Option {
	return func(o *engineOptions) { o.sourceNames = names }
}

// WithConflictPairs overrides DefaultConflictPairs.
func WithConflictPairs(pairs []ConflictPair) Option {
	return func(o *engineOptions) { o.pairs = pairs }
}

// WithRequired overrides DefaultRequired.
func WithRequired(categories ...Category) Option {
	return func(o *engineOptions) { o.required = categories }
}

// WithRejectHook observes filter rejections.
func WithRejectHook(h RejectHook) Option {
	return func(o *engineOptions) { o.onReject = h }
}

// WithResolveHook observes resolved conflicts.
func WithResolveHook(h ResolveHook) Option {
	return func(o *engineOptions) { o.onResolve = h }
}

// Engine runs filter, resolver, classifier and annotator over one frame.
// It holds no per-frame state and performs no I/O.
type Engine struct {
	catalog    *ClassCatalog
	filter     *Filter
	resolver   *Resolver
	classifier *Classifier
	annotator  *Annotator
}

// NewEngine creates an Engine for the given catalog.
func NewEngine(catalog *ClassCatalog, opts ...Option) *Engine {
	o := engineOptions{
		thresholds: DefaultThresholds(),
		pairs:      DefaultConflictPairs,
		required:   DefaultRequired,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		catalog:    catalog,
		filter:     NewFilter(catalog, o.thresholds, o.sourceNames, o.onReject),
		resolver:   NewResolver(o.pairs, o.onResolve),
		classifier: NewClassifier(o.required...),
		annotator:  NewAnnotator(),
	}
}

// Catalog returns the engine's class catalog.
func (e *Engine) Catalog() *ClassCatalog {
	return e.catalog
}

// Process refines dets for frame and classifies the result. It never panics:
// an internal fault yields a copy of the frame, no candidates, zero stats and
// Err set.
func (e *Engine) Process(frame image.Image, dets []RawDetection) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Frame: cloneImage(frame),
				Err:   errors.Errorf("frame processing failed: %v", r),
			}
		}
	}()

	filtered := e.filter.Apply(frame, dets)
	resolved := e.resolver.Resolve(filtered)

	return Result{
		Frame:      e.annotator.Annotate(frame, resolved),
		Candidates: resolved,
		Stats:      e.classifier.Classify(resolved),
		Filtered:   len(filtered),
	}
}

// Degraded returns the result for a frame that could not be run through a
// model: zero stats and a visible diagnostic overlay.
func (e *Engine) Degraded(frame image.Image, reason string) (res Result) {
	lines := []string{DegradedMessage}
	if reason != "" {
		lines = append(lines, reason)
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Frame: cloneImage(frame)}
		}
	}()
	return Result{Frame: e.annotator.DrawDiagnostic(frame, lines)}
}

func cloneImage(src image.Image) image.Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
