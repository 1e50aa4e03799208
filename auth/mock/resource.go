package mock

import (
	"io"
	"net/http"
	"strings"
)

// protected rejects calls without a valid, current bearer token.
func (s *BackendService) protected(next func(w http.ResponseWriter, r *http.Request, user *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.authenticate(parts[1])
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.record(Request{Method: r.Method, Path: r.URL.Path, AccessToken: parts[1], Body: string(body)})
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next(w, r, user)
	}
}

// meHandler serves /users/me/.
func (s *BackendService) meHandler(w http.ResponseWriter, _ *http.Request, user *User) {
	writeJSON(w, http.StatusOK, user)
}

// echoHandler answers any other protected resource with the call it saw.
func (s *BackendService) echoHandler(w http.ResponseWriter, r *http.Request, user *User) {
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"user":   user.Username,
		"body":   string(body),
	})
}
