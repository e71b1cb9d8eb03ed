package capture

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"ppemonitor/internal/logger"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

const (
	udpPacketSize  = 2048
	maxFrameSize   = 2 << 20
	udpReadTimeout = 2 * time.Second
)

// ErrNoFrame is returned by UDPSource when no complete frame arrived in time.
var ErrNoFrame = errors.New("no frame received")

// Assembler rebuilds JPEG frames from datagrams. A packet starting with the
// JPEG start marker begins a new frame; a packet ending with the end marker
// completes it. Each camera has its own buffer.
type Assembler struct {
	buffers map[string]*bytes.Buffer
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{buffers: make(map[string]*bytes.Buffer)}
}

// Push adds one datagram and returns a complete frame when data finishes one.
func (a *Assembler) Push(camera string, data []byte) ([]byte, bool) {
	buf, ok := a.buffers[camera]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[camera] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// continuation of a frame whose start was lost
		return nil, false
	}
	buf.Write(data)

	if buf.Len() > maxFrameSize {
		buf.Reset()
		return nil, false
	}

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame, true
}

// Frame is one JPEG image received from a camera.
type Frame struct {
	Camera string
	JPEG   []byte
}

// UDPSource receives JPEG frames pushed by network cameras. Only the newest
// complete frame is kept; older unread frames are dropped.
type UDPSource struct {
	conn   *net.UDPConn
	names  map[string]string
	frames chan Frame
	logger *logger.Logger
	wg     sync.WaitGroup
}

// ListenUDP starts receiving on addr (for example ":9999"). names maps
// sender IPs to camera names.
func ListenUDP(addr string, names map[string]string, log *logger.Logger) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve UDP address %s", addr)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on UDP %s", addr)
	}

	s := &UDPSource{
		conn:   conn,
		names:  names,
		frames: make(chan Frame, 1),
		logger: log,
	}
	s.wg.Add(1)
	go s.receive()

	log.Info("UDP camera source listening on %s", conn.LocalAddr())
	return s, nil
}

// Addr returns the local listening address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) cameraName(remote *net.UDPAddr) string {
	ip := remote.IP.String()
	if name, ok := s.names[ip]; ok {
		return name
	}
	return "unknown_" + ip
}

func (s *UDPSource) receive() {
	defer s.wg.Done()

	assembler := NewAssembler()
	buffer := make([]byte, udpPacketSize)
	for {
		n, remote, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		camera := s.cameraName(remote)
		if frame, ok := assembler.Push(camera, buffer[:n]); ok {
			s.offer(Frame{Camera: camera, JPEG: frame})
		}
	}
}

// offer replaces any unread frame with f.
func (s *UDPSource) offer(f Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// ReadJPEG waits for the next complete frame.
func (s *UDPSource) ReadJPEG(timeout time.Duration) (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-time.After(timeout):
		return Frame{}, ErrNoFrame
	}
}

// Read waits for the next frame and decodes it.
func (s *UDPSource) Read() (gocv.Mat, error) {
	f, err := s.ReadJPEG(udpReadTimeout)
	if err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.IMDecode(f.JPEG, gocv.IMReadColor)
	if err != nil {
		return mat, errors.Wrapf(err, "failed to decode frame from %s", f.Camera)
	}
	if mat.Empty() {
		return mat, errors.Errorf("decoded frame from %s is empty", f.Camera)
	}
	return mat, nil
}

// Close stops receiving.
func (s *UDPSource) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
