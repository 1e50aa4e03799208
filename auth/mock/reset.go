package mock

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// requestResetHandler issues a reset token for a known email.
func (s *BackendService) requestResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email string `json:"correo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "correo is required")
		return
	}
	if s.userByEmail(payload.Email) == nil {
		writeDetail(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	s.resets.Put(uuid.NewString(), payload.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Correo de recuperación enviado"})
}

// resetPasswordHandler replaces the password of the token owner.
func (s *BackendService) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Token    string `json:"token"`
		Password string `json:"nueva_contrasena"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "token and nueva_contrasena are required")
		return
	}
	email, ok := s.resets.Get(payload.Token)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Token inválido o expirado")
		return
	}
	s.resets.Delete(payload.Token)
	user := s.userByEmail(email)
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Token inválido o expirado")
		return
	}
	updated := *user
	updated.Password = payload.Password
	s.users.Put(updated.Username, &updated)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada"})
}

func (s *BackendService) userByEmail(email string) *User {
	var ret *User
	s.users.Range(func(_ string, user *User) bool {
		if user.Email == email {
			ret = user
			return false
		}
		return true
	})
	return ret
}
