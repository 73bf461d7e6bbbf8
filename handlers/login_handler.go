package handlers

import (
	"net/http"
	"strings"

	"friday/middleware"
)

type matrixLoginRequest struct {
	Type       string            `json:"type"`
	User       string            `json:"user"`
	Password   string            `json:"password"`
	Identifier map[string]string `json:"identifier"`
}

// MatrixLoginHandler proxies a password login to the homeserver.
func MatrixLoginHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req matrixLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	username := strings.TrimSpace(req.User)
	if u := strings.TrimSpace(req.Identifier["user"]); u != "" {
		username = u
	}
	if username == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "user and password are required")
		return
	}

	resp, err := env.Matrix.LoginAs(r.Context(), username, req.Password)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Login failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

type operatorLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// OperatorLoginHandler issues a dashboard token.
func OperatorLoginHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req operatorLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, op, err := env.Operators.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"operator": op,
	})
}

// CurrentOperatorHandler reports who the bearer token belongs to.
func CurrentOperatorHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	claims, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"operator_id": claims.OperatorID,
		"username":    claims.Username,
		"expires_at":  claims.ExpiresAt,
	})
}
