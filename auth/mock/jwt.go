package mock

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// createJWT creates a signed access token for user valid for expiry.
func (s *BackendService) createJWT(user *User, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.Email,
		"name":  user.Username,
		"roles": []string{user.Role.Name},
		"gen":   s.generation.Load(),
		"exp":   now.Add(expiry).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.PrivateKey)
}

// authenticate validates an access token and returns its user.
func (s *BackendService) authenticate(accessToken string) (*User, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.PrivateKey.PublicKey, nil
	})
	if err != nil {
		return nil, err
	}
	generation, _ := claims["gen"].(float64)
	if int64(generation) != s.generation.Load() {
		return nil, errors.New("token expired")
	}
	name, _ := claims["name"].(string)
	user, ok := s.users.Get(name)
	if !ok {
		return nil, errors.New("unknown user")
	}
	return user, nil
}
