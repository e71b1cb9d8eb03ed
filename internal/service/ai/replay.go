package ai

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"ppemonitor/internal/ppe"
)

// Recording is a file of detections captured from a model, one entry per
// frame:
//
//	{"names": {"0": "Hardhat"}, "frames": [[{"class_id": 0, "confidence": 0.9, "box": {...}}]]}
type Recording struct {
	Names  map[string]string    `json:"names"`
	Frames [][]ppe.RawDetection `json:"frames"`
}

// LoadRecording reads a recording from path.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(rec.Frames) == 0 {
		return nil, errors.Errorf("%s has no frames", path)
	}
	return &rec, nil
}

// ClassNames converts the recorded names to ids.
func (r *Recording) ClassNames() (map[int]string, error) {
	out := make(map[int]string, len(r.Names))
	for k, v := range r.Names {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Errorf("invalid class id %q", k)
		}
		out[id] = v
	}
	return out, nil
}

// ReplayDetector plays back a recording, one frame per Detect call, and
// starts over at the end.
type ReplayDetector struct {
	frames [][]ppe.RawDetection
	names  map[int]string
	next   int
	mu     sync.Mutex
}

// NewReplayDetector creates a ReplayDetector for rec.
func NewReplayDetector(rec *Recording) (*ReplayDetector, error) {
	names, err := rec.ClassNames()
	if err != nil {
		return nil, err
	}
	return &ReplayDetector{frames: rec.Frames, names: names}, nil
}

// Detect returns the next recorded frame; the image is ignored.
func (d *ReplayDetector) Detect(gocv.Mat) ([]ppe.RawDetection, error) {
	return d.Next(), nil
}

// Next returns the next recorded frame.
func (d *ReplayDetector) Next() []ppe.RawDetection {
	d.mu.Lock()
	defer d.mu.Unlock()

	dets := d.frames[d.next]
	d.next = (d.next + 1) % len(d.frames)
	return dets
}

func (d *ReplayDetector) ClassNames() map[int]string {
	return d.names
}

func (d *ReplayDetector) Close() error {
	return nil
}
