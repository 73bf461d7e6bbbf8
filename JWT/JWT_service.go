package jwt_service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the dashboard operator a token was issued to.
type Claims struct {
	OperatorID string
	Username   string
	ExpiresAt  time.Time
}

// Manager signs and verifies HS256 operator tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

func (m *Manager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
	}
	return m.secret, nil
}

func (m *Manager) GenerateJWT(operatorID, username string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["ID"] = operatorID
	claims["username"] = username
	claims["exp"] = time.Now().Add(m.ttl).Unix()
	return token.SignedString(m.secret)
}

// ParseJWT verifies the signature and expiry and returns the claims.
func (m *Manager) ParseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, m.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["ID"].(string)
	if id == "" {
		return nil, ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	exp, _ := claims["exp"].(float64)
	return &Claims{
		OperatorID: id,
		Username:   username,
		ExpiresAt:  time.Unix(int64(exp), 0),
	}, nil
}

func (m *Manager) IsTokenValid(tokenString string) bool {
	_, err := m.ParseJWT(tokenString)
	return err == nil
}
