package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"ppemonitor/internal/capture"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/ppe"
	"ppemonitor/internal/route"
	"ppemonitor/internal/service"
	"ppemonitor/internal/service/ai"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
	"ppemonitor/internal/stats"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	latest  *stats.Latest
	hub     *websocket.HubService
	stream  *stream.Broadcaster
	manager *service.Manager
	server  *http.Server
}

// LoadCatalog returns the catalog at cfg.CatalogPath, or the built-in one
// when no path is configured.
func LoadCatalog(cfg *config.Config) (*ppe.ClassCatalog, error) {
	if cfg.CatalogPath == "" {
		return ppe.DefaultCatalog(), nil
	}
	return ppe.LoadCatalog(cfg.CatalogPath)
}

// NewApp wires every component. A missing model is not an error: the
// monitor runs in degraded mode. A model whose classes disagree with the
// catalog is.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogger(cfg)

	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	var (
		detector ai.Detector
		names    map[int]string
		reason   string
	)
	ds, err := ai.NewDetectorService(cfg, log)
	if err != nil {
		log.Warning("⚠️  Running without detection: %v", err)
		reason = fmt.Sprintf("Check MODEL_PATH (%s)", filepath.Base(cfg.ModelPath))
	} else {
		names = ds.ClassNames()
		if err := catalog.Validate(names); err != nil {
			ds.Close()
			return nil, errors.Wrap(err, "class catalog does not match the model")
		}
		detector = ds
	}

	m := metrics.New()
	latest := stats.NewLatest()
	broadcaster := stream.NewBroadcaster(func(n int) { m.StreamClients.Store(int64(n)) })
	hub := websocket.NewHubService(log, func(n int) { m.StatusClients.Store(int64(n)) })
	hub.SetWelcome(func() []byte {
		msg, _ := json.Marshal(latest.Load())
		return msg
	})

	source, err := capture.Open(cfg.CameraSource, cfg.CameraFallbacks, cfg.CameraNames, log)
	if err != nil {
		if detector != nil {
			detector.Close()
		}
		return nil, errors.Wrap(err, "failed to open camera")
	}

	manager := service.NewManager(service.Deps{
		Source:   source,
		Detector: detector,
		Engine:   service.NewEngine(catalog, names, cfg, m, log),
		Latest:   latest,
		Hub:      hub,
		Stream:   broadcaster,
		Metrics:  m,
		Logger:   log,
	}, cfg)
	manager.SetDegradedReason(reason)

	a := &App{
		config:  cfg,
		logger:  log,
		metrics: m,
		latest:  latest,
		hub:     hub,
		stream:  broadcaster,
		manager: manager,
	}
	a.server = &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: route.SetupRoutes(route.Services{
			Model:   manager,
			Latest:  latest,
			Hub:     hub,
			Stream:  broadcaster,
			Metrics: m,
			Started: time.Now(),
		}, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run serves until ctx is cancelled or a component fails, then shuts
// everything down.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()
	defer a.manager.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hub.Run(ctx) })
	g.Go(func() error { return a.manager.Run(ctx) })
	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// stream viewers never finish on their own
		a.stream.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	a.logger.Info("🚀 PPE Monitor")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("📷 Camera: %s", a.config.CameraSource)
	a.logger.Info("🤖 AI Model: %s (loaded: %t)", a.config.ModelPath, a.manager.ModelLoaded())

	err := g.Wait()
	a.logger.Info("🛑 PPE Monitor stopped")
	return err
}
