package handlers

import "net/http"

func DashboardHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	d, err := env.Dashboard.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}
