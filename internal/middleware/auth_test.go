package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := AuthMiddleware(ok)

	tests := []struct {
		name     string
		method   string
		path     string
		cookie   bool
		header   string
		wantCode int
	}{
		{"dashboard is public", http.MethodGet, "/", false, "", http.StatusOK},
		{"status is public", http.MethodGet, "/api/status", false, "", http.StatusOK},
		{"stream is public", http.MethodGet, "/video_feed", false, "", http.StatusOK},
		{"login page is public", http.MethodGet, "/login", false, "", http.StatusOK},
		{"logs redirect to login", http.MethodGet, "/logs/info", false, "", http.StatusSeeOther},
		{"logs for XHR get 401", http.MethodGet, "/logs/info", false, "XMLHttpRequest", http.StatusUnauthorized},
		{"clear without cookie gets 401", http.MethodPost, "/logs/info/clear", false, "", http.StatusUnauthorized},
		{"logs with cookie", http.MethodGet, "/logs/error", true, "", http.StatusOK},
		{"clear with cookie", http.MethodPost, "/logs/error/clear", true, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "true"})
			}
			if tt.header != "" {
				req.Header.Set("X-Requested-With", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode == http.StatusSeeOther && rec.Header().Get("Location") != "/login" {
				t.Errorf("Expected redirect to /login, got %q", rec.Header().Get("Location"))
			}
		})
	}
}
