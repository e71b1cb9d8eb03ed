package handler

import (
	"net/http"
	"os"

	"ppemonitor/internal/logger"
)

// ShowLogsHandler serves a level file (info.log, warning.log, error.log) as text/plain.
func ShowLogsHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := log.Path(fileName)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found: " + fileName))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")

		http.ServeFile(w, r, path)
	}
}

// ClearLogsHandler truncates a level file on POST.
func ClearLogsHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := log.CleanLogs(fileName); err != nil {
			log.Error("Failed to clear %s: %v", fileName, err)
			writeJSONWithStatus(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, map[string]string{"status": "cleared", "file": fileName})
	}
}
