package ai

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/ppe"
)

// classOffset separates boxes of different classes so that a single
// class-agnostic NMS pass suppresses overlaps within a class only.
const classOffset = 4096

// Detector produces raw detections for a BGR frame.
type Detector interface {
	Detect(frame gocv.Mat) ([]ppe.RawDetection, error)
	// ClassNames returns the class names the model reports, keyed by id.
	ClassNames() map[int]string
	Close() error
}

// DetectorService runs a YOLOv8 ONNX model with the OpenCV DNN module.
type DetectorService struct {
	net           gocv.Net
	names         map[int]string
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
	modelPath     string
	logger        *logger.Logger
	mu            sync.Mutex
}

// NewDetectorService loads the model. It fails when the model file is
// missing or cannot be read; callers run in degraded mode in that case.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	s := &DetectorService{
		inputSize:     cfg.ModelInputSize,
		confThreshold: float32(cfg.ModelConfidence),
		nmsThreshold:  float32(cfg.ModelNMS),
		modelPath:     cfg.ModelPath,
		logger:        logger,
	}
	if s.inputSize <= 0 {
		s.inputSize = 640
	}

	if err := s.initializeNet(); err != nil {
		return nil, err
	}

	names, err := LoadClassNames(cfg.ModelNamesPath)
	if err != nil {
		logger.Warning("Model class names unavailable, catalog will not be validated: %v", err)
		names = map[int]string{}
	}
	s.names = names

	return s, nil
}

// initializeNet loads the ONNX model and selects the CPU backend.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return errors.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return errors.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return errors.New("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized successfully (%s)", s.modelPath)
	return nil
}

// ClassNames returns the class names read from the dataset file.
func (s *DetectorService) ClassNames() map[int]string {
	out := make(map[int]string, len(s.names))
	for id, name := range s.names {
		out[id] = name
	}
	return out
}

// Detect runs one inference. The frame is padded to a square so the
// model's aspect ratio is preserved, then boxes are scaled back to frame
// coordinates.
func (s *DetectorService) Detect(frame gocv.Mat) ([]ppe.RawDetection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	height, width := frame.Rows(), frame.Cols()
	side := max(height, width)
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), side, side, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, width, height))
	frame.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, errors.Errorf("unexpected model output shape %v", dims)
	}

	out := &yoloOutput{
		attrs:   dims[1],
		anchors: dims[2],
		at:      func(row, col int) float32 { return output.GetFloatAt3(0, row, col) },
	}
	scale := float32(side) / float32(s.inputSize)
	cands := out.decode(s.confThreshold, scale, image.Rect(0, 0, width, height))

	return s.suppress(cands), nil
}

// suppress applies per-class non-maximum suppression.
func (s *DetectorService) suppress(cands []ppe.RawDetection) []ppe.RawDetection {
	if len(cands) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		offset := image.Pt(c.ClassID*classOffset, c.ClassID*classOffset)
		boxes[i] = c.Box.Rect().Add(offset)
		scores[i] = float32(c.Confidence)
	}

	indices := gocv.NMSBoxes(boxes, scores, s.confThreshold, s.nmsThreshold)
	out := make([]ppe.RawDetection, 0, len(indices))
	for _, idx := range indices {
		out = append(out, cands[idx])
	}
	return out
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

// yoloOutput is a YOLOv8 detection head output of shape
// [1, 4+classes, anchors]: rows 0-3 hold cx, cy, w, h in network input
// pixels, the remaining rows hold per-class scores.
type yoloOutput struct {
	attrs   int
	anchors int
	at      func(row, col int) float32
}

// decode returns every anchor whose best class score reaches minScore,
// scaled by scale and clipped to bounds.
func (o *yoloOutput) decode(minScore, scale float32, bounds image.Rectangle) []ppe.RawDetection {
	var out []ppe.RawDetection

	for col := 0; col < o.anchors; col++ {
		classID, score := -1, float32(0)
		for row := 4; row < o.attrs; row++ {
			if v := o.at(row, col); v > score {
				classID, score = row-4, v
			}
		}
		if classID < 0 || score < minScore {
			continue
		}

		cx, cy := o.at(0, col), o.at(1, col)
		w, h := o.at(2, col), o.at(3, col)
		r := image.Rect(
			int((cx-w/2)*scale),
			int((cy-h/2)*scale),
			int((cx+w/2)*scale),
			int((cy+h/2)*scale),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}

		out = append(out, ppe.RawDetection{
			ClassID:    classID,
			Confidence: float64(score),
			Box:        ppe.Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
		})
	}
	return out
}
