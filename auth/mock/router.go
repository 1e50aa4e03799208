package mock

import (
	"net/http"
)

// Handler routes HTTP requests to the appropriate backend endpoints.
type Handler struct {
	// Server is the backend with endpoint handlers.
	Server *BackendService
}

// ServeHTTP dispatches incoming HTTP requests based on URL path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/token", "/login":
		h.Server.tokenHandler(w, r)
	case "/register":
		h.Server.registerHandler(w, r)
	case "/refresh":
		h.Server.refreshHandler(w, r)
	case "/request-password-reset":
		h.Server.requestResetHandler(w, r)
	case "/reset-password":
		h.Server.resetPasswordHandler(w, r)
	case "/users/me", "/users/me/":
		h.Server.protected(h.Server.meHandler)(w, r)
	default:
		if h.Server.ResourceHandler != nil {
			h.Server.protected(h.Server.ResourceHandler)(w, r)
			return
		}
		h.Server.protected(h.Server.echoHandler)(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}
