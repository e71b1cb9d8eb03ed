package route

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ppemonitor/internal/config"
	"ppemonitor/internal/handler"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/middleware"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
	"ppemonitor/internal/stats"
)

// Services are the running components the HTTP layer reads from.
type Services struct {
	Model   handler.ModelStatus
	Latest  *stats.Latest
	Hub     *websocket.HubService
	Stream  *stream.Broadcaster
	Metrics *metrics.Metrics
	Started time.Time
}

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}
		if strings.Contains(path, "..") {
			http.NotFound(w, r)
			return
		}

		filePath := filepath.Join(staticDir, filepath.FromSlash(path)+".html")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Live view
	mux.HandleFunc("/video_feed", handler.VideoFeedHandler(svc.Stream, log))

	// API endpoints
	mux.HandleFunc("/api/status", handler.StatusHandler(svc.Latest))
	mux.HandleFunc("/api/status/ws", handler.StatusWebsocketHandler(svc.Hub, log))
	mux.HandleFunc("/api/health", handler.HealthHandler(svc.Model, svc.Latest, svc.Started))
	mux.Handle("/metrics", svc.Metrics.Handler())

	// Log endpoints
	for _, level := range []struct{ path, file string }{
		{"info", logger.InfoFile},
		{"warning", logger.WarningFile},
		{"error", logger.ErrorFile},
	} {
		mux.HandleFunc("/logs/"+level.path, handler.ShowLogsHandler(log, level.file))
		mux.HandleFunc("/logs/"+level.path+"/clear", handler.ClearLogsHandler(log, level.file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping, e.g. /login -> static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
