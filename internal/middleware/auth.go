package middleware

import (
	"net/http"
	"strings"
)

// AuthCookie is the cookie set after a successful login.
const AuthCookie = "authenticated"

// protectedPrefix marks the admin endpoints. The dashboard, stream and status
// API stay public.
const protectedPrefix = "/logs"

// AuthMiddleware requires the auth cookie on admin endpoints.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, protectedPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || cookie.Value != "true" {
			// AJAX/API callers get a 401, browsers go to the login page
			if r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" ||
				r.Method != http.MethodGet {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
