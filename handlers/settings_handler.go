package handlers

import (
	"net/http"

	"friday/logger"
	"friday/middleware"
)

type settingsPayload struct {
	LLMModel string `json:"llm_model"`
}

func GetSettingsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	model, err := env.Settings.Model(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load settings")
		return
	}
	respondWithJSON(w, http.StatusOK, settingsPayload{LLMModel: model})
}

func UpdateSettingsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req settingsPayload
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := env.Settings.SetModel(r.Context(), req.LLMModel); err != nil {
		respondWithServiceError(w, r, err, "Failed to save settings")
		return
	}
	entry := logger.WithRequestID(logger.Logger, middleware.GetRequestID(r.Context())).
		WithField("llm_model", req.LLMModel)
	if claims, ok := middleware.OperatorFromContext(r.Context()); ok {
		entry = entry.WithField("operator", claims.Username)
	}
	entry.Info("settings updated")
	respondWithJSON(w, http.StatusOK, req)
}
