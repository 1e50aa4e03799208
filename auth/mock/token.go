package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func jsonEncode(w io.Writer, payload interface{}) error {
	return json.NewEncoder(w).Encode(payload)
}

// tokenHandler handles the form encoded password login at /token.
func (s *BackendService) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.loginCalls.Add(1)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if grantType := r.PostFormValue("grant_type"); grantType != "" && grantType != "password" {
		writeDetail(w, http.StatusBadRequest, "Unsupported grant type")
		return
	}
	user, ok := s.users.Get(r.PostFormValue("username"))
	if !ok || user.Password != r.PostFormValue("password") {
		writeDetail(w, http.StatusUnauthorized, "Credenciales de usuario incorrectas")
		return
	}
	accessToken, err := s.createJWT(user, s.AccessTTL)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	sessionID := uuid.NewString()
	s.sessions.Put(sessionID, user.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   int(s.AccessTTL.Seconds()),
	})
}

// registerHandler creates a user from a JSON payload.
func (s *BackendService) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"usuario"`
		Email    string `json:"correo"`
		Password string `json:"contrasena"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Username == "" || payload.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "usuario and contrasena are required")
		return
	}
	user := &User{Username: payload.Username, Email: payload.Email, Password: payload.Password, Role: Role{ID: 1, Name: "Usuario"}}
	if !s.addUser(user) {
		writeDetail(w, http.StatusBadRequest, "El nombre de usuario ya está en uso.")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// refreshHandler exchanges the refresh cookie for a new access token.
func (s *BackendService) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.refreshCalls.Add(1)
	if s.RefreshDelay > 0 {
		select {
		case <-time.After(s.RefreshDelay):
		case <-r.Context().Done():
			return
		}
	}
	if s.FailRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}
	username, ok := s.sessions.Get(cookie.Value)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	user, ok := s.users.Get(username)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	accessToken, err := s.createJWT(user, s.AccessTTL)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}
