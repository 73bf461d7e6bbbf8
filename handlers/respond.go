package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"friday/logger"
	"friday/matrix"
	"friday/middleware"
	"friday/repository"
	"friday/service"
)

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, msg string) {
	respondWithJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *matrix.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrTodoNotFound),
		errors.Is(err, service.ErrSubscriberNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyDescription),
		errors.Is(err, service.ErrInvalidPlatform),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRoomLimit):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondWithServiceError hides internal errors behind a generic message and
// logs them with the request id.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		respondWithError(w, status, err.Error())
		return
	}
	logger.WithRequestID(logger.Logger, middleware.GetRequestID(r.Context())).
		WithError(err).WithField("path", r.URL.Path).Error(fallback)
	respondWithError(w, status, fallback)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}
