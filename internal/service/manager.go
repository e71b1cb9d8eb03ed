// Package service runs the frame loop: capture, detection, the PPE engine
// and fan-out to viewers.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"ppemonitor/internal/capture"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/ppe"
	"ppemonitor/internal/service/ai"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
	"ppemonitor/internal/stats"
)

// aliveEvery is how often, in processed frames, the loop logs that it runs.
const aliveEvery = 30

// Deps are the collaborators of a Manager.
type Deps struct {
	Source   capture.Source
	Detector ai.Detector // nil runs the loop in degraded mode
	Engine   *ppe.Engine
	Latest   *stats.Latest
	Hub      *websocket.HubService
	Stream   *stream.Broadcaster
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Clock    clock.Clock // defaults to the wall clock
}

type Manager struct {
	source   capture.Source
	detector ai.Detector
	engine   *ppe.Engine
	latest   *stats.Latest
	hub      *websocket.HubService
	stream   *stream.Broadcaster
	metrics  *metrics.Metrics
	logger   *logger.Logger
	clock    clock.Clock

	interval       time.Duration
	backoff        time.Duration
	jpegQuality    int
	degradedReason string

	frames    uint64
	lastStats *ppe.ComplianceStats
}

func NewManager(deps Deps, cfg *config.Config) *Manager {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		source:      deps.Source,
		detector:    deps.Detector,
		engine:      deps.Engine,
		latest:      deps.Latest,
		hub:         deps.Hub,
		stream:      deps.Stream,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		clock:       clk,
		interval:    cfg.FrameInterval,
		backoff:     cfg.ErrorBackoff,
		jpegQuality: cfg.JPEGQuality,
	}
}

// SetDegradedReason sets the second overlay line shown while no detector is
// loaded.
func (m *Manager) SetDegradedReason(reason string) {
	m.degradedReason = reason
}

// ModelLoaded reports whether frames are run through a detector.
func (m *Manager) ModelLoaded() bool {
	return m.detector != nil
}

// Run processes frames until ctx is cancelled. A failed frame is logged,
// counted and followed by the error backoff; it never stops the loop.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("🎬 Frame loop started (interval %s, model loaded: %t)", m.interval, m.ModelLoaded())
	defer m.logger.Info("🛑 Frame loop stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		wait := m.interval
		if err := m.ProcessFrame(); err != nil {
			m.metrics.FramesFailed.Add(1)
			m.logger.Error("Frame loop error: %v", err)
			wait = m.backoff
		}

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-m.clock.After(wait):
		}
	}
}

// ProcessFrame runs one loop iteration: read, detect, refine, publish.
func (m *Manager) ProcessFrame() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("frame loop panic: %v", r)
		}
	}()

	start := m.clock.Now()

	mat, err := m.source.Read()
	defer mat.Close()
	if err != nil {
		m.metrics.ReadErrors.Add(1)
		m.publishFrame(capture.BlankFrame())
		return errors.Wrap(err, "failed to read frame")
	}
	if mat.Empty() {
		m.metrics.ReadErrors.Add(1)
		return errors.New("camera returned an empty frame")
	}
	m.metrics.FramesRead.Add(1)

	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrap(err, "failed to convert frame")
	}

	var res ppe.Result
	if m.detector == nil {
		res = m.engine.Degraded(img, m.degradedReason)
		m.metrics.DegradedFrames.Add(1)
	} else {
		dets, err := m.detector.Detect(mat)
		if err != nil {
			m.metrics.DetectErrors.Add(1)
			return errors.Wrap(err, "detection failed")
		}
		res = m.engine.Process(img, dets)
		m.metrics.RawDetections.Add(uint64(len(dets)))
		if res.Err != nil {
			m.metrics.EngineFaults.Add(1)
			m.logger.Warning("Engine fault, frame shown without detections: %v", res.Err)
		}
	}
	m.metrics.Candidates.Add(uint64(len(res.Candidates)))

	m.publishStats(res.Stats, start)
	m.publishFrame(res.Frame)

	m.metrics.FramesProcessed.Add(1)
	m.metrics.UpdateProcessLatency(m.clock.Since(start))

	m.frames++
	if m.frames%aliveEvery == 0 {
		m.logger.Info("Stream is alive: %d frames, %d people, %d violations",
			m.frames, res.Stats.TotalPeople, res.Stats.Violations)
	}
	return nil
}

func (m *Manager) publishStats(s ppe.ComplianceStats, at time.Time) {
	m.latest.Store(s, at)
	m.metrics.People.Store(int64(s.TotalPeople))
	m.metrics.Violations.Store(int64(s.Violations))

	if m.lastStats != nil && *m.lastStats == s {
		return
	}
	m.lastStats = &s

	if m.hub == nil {
		return
	}
	msg, err := json.Marshal(s)
	if err != nil {
		m.logger.Error("Failed to encode stats: %v", err)
		return
	}
	if !m.hub.Broadcast(msg) {
		m.logger.Warning("Status queue full, update dropped")
	}
}

func (m *Manager) publishFrame(frame image.Image) {
	if frame == nil || m.stream == nil {
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: m.jpegQuality}); err != nil {
		m.logger.Error("Failed to encode frame: %v", err)
		return
	}
	m.stream.Publish(buf.Bytes())
}

// Close releases the frame source and the detector.
func (m *Manager) Close() error {
	err := m.source.Close()
	if m.detector != nil {
		err = multierr.Append(err, m.detector.Close())
	}
	return err
}

// NewEngine builds the PPE engine for the loop, reporting filter rejections
// and resolved conflicts to metrics and the debug log.
func NewEngine(catalog *ppe.ClassCatalog, sourceNames map[int]string, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *ppe.Engine {
	return ppe.NewEngine(catalog,
		ppe.WithThresholds(cfg.Thresholds),
		ppe.WithSourceNames(sourceNames),
		ppe.WithRejectHook(func(rule string, in ppe.RuleInput) {
			m.Reject(rule)
			b := in.Detection.Box
			log.Debug("Rejected class %d (%.2f) by %s: brightness %.1f, aspect %.2f",
				in.Detection.ClassID, in.Detection.Confidence, rule, in.Sample.MeanBrightness, b.AspectRatio())
		}),
		ppe.WithResolveHook(func(kept, dropped ppe.Candidate) {
			m.ConflictsResolved.Add(1)
			log.Debug("Conflict resolved: kept %q, dropped %q", kept.Label, dropped.Label)
		}),
	)
}
