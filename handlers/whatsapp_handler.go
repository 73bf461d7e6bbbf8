package handlers

import (
	"net/http"

	"friday/matrix"
	"friday/middleware"
)

// WhatsAppRoomsHandler lists bridged rooms with the caller's own Matrix token.
// Every query parameter is a room field filter.
func WhatsAppRoomsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	token, err := middleware.BearerToken(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	filters := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	rooms, err := env.RoomsFor(token).ListRooms(r.Context(), filters)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list rooms: "+err.Error())
		return
	}
	if rooms == nil {
		rooms = []matrix.Room{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"total": len(rooms),
	})
}
