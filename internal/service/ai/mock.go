package ai

import (
	"sync"

	"gocv.io/x/gocv"

	"ppemonitor/internal/ppe"
)

// MockDetector is a test implementation of the Detector interface.
type MockDetector struct {
	detections []ppe.RawDetection
	names      map[int]string
	err        error
	calls      int
	mu         sync.Mutex
}

// NewMockDetector creates a MockDetector reporting the given class names.
func NewMockDetector(names map[int]string) *MockDetector {
	return &MockDetector{names: names}
}

// SetDetections sets the detections returned by Detect.
func (m *MockDetector) SetDetections(dets []ppe.RawDetection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = dets
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the configured detections or error.
func (m *MockDetector) Detect(gocv.Mat) ([]ppe.RawDetection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]ppe.RawDetection(nil), m.detections...), nil
}

func (m *MockDetector) ClassNames() map[int]string {
	return m.names
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
