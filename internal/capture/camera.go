// Package capture provides frame sources: local or network cameras through
// GoCV and JPEG frames pushed over UDP.
package capture

import (
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"ppemonitor/internal/logger"
)

// Default frame geometry.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when no configured device could be opened.
var ErrCameraNotOpen = errors.New("camera is not open")

// Source produces decoded BGR frames. The caller closes the returned Mat,
// also when err is non-nil.
type Source interface {
	Read() (gocv.Mat, error)
	Close() error
}

// Open returns the frame source named by source: "udp://:PORT" for pushed
// JPEG frames, otherwise a camera device index or stream URL.
func Open(source string, fallbacks []int, cameraNames map[string]string, log *logger.Logger) (Source, error) {
	if addr, ok := strings.CutPrefix(source, "udp://"); ok {
		return ListenUDP(addr, cameraNames, log)
	}
	return NewCamera(source, fallbacks, log), nil
}

// BlankFrame returns a black frame of the default size.
func BlankFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, DefaultWidth, DefaultHeight))
	black := color.RGBA{A: 255}
	for y := 0; y < DefaultHeight; y++ {
		for x := 0; x < DefaultWidth; x++ {
			img.SetRGBA(x, y, black)
		}
	}
	return img
}

// Camera reads frames from a VideoCapture device or stream. When the
// configured source cannot be opened it falls back to local device indices in
// order. A failed read releases the device; the next Read reopens it.
type Camera struct {
	source    string
	fallbacks []int
	capture   *gocv.VideoCapture
	opened    string
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewCamera creates a Camera. Nothing is opened until the first Read.
func NewCamera(source string, fallbacks []int, log *logger.Logger) *Camera {
	return &Camera{
		source:    source,
		fallbacks: fallbacks,
		logger:    log,
	}
}

// candidates lists the devices to try: the configured source first, then
// the fallback indices not equal to it.
func (c *Camera) candidates() []interface{} {
	var out []interface{}
	primary, err := strconv.Atoi(c.source)
	switch {
	case c.source == "":
	case err == nil:
		out = append(out, primary)
	default:
		out = append(out, c.source)
	}
	for _, idx := range c.fallbacks {
		if err == nil && idx == primary {
			continue
		}
		out = append(out, idx)
	}
	return out
}

func (c *Camera) open() error {
	for _, device := range c.candidates() {
		capture, err := gocv.OpenVideoCapture(device)
		if err != nil {
			c.logger.Warning("Failed to open camera %v: %v", device, err)
			continue
		}
		if !capture.IsOpened() {
			capture.Close()
			c.logger.Warning("Camera %v did not open", device)
			continue
		}

		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

		c.capture = capture
		c.opened = deviceName(device)
		c.logger.Info("Camera %s opened", c.opened)
		return nil
	}
	return ErrCameraNotOpen
}

// Read returns the next frame.
func (c *Camera) Read() (gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		if err := c.open(); err != nil {
			return gocv.NewMat(), err
		}
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		c.release()
		return gocv.NewMat(), errors.Errorf("failed to read frame from camera %s", c.opened)
	}
	return mat, nil
}

// Device returns the name of the opened device, empty when closed.
func (c *Camera) Device() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

func (c *Camera) release() error {
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	c.opened = ""
	return err
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release()
}

func deviceName(device interface{}) string {
	switch d := device.(type) {
	case int:
		return strconv.Itoa(d)
	case string:
		return d
	}
	return ""
}
