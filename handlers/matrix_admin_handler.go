package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// RoomDetailsHandler returns the homeserver's admin view of one room.
func RoomDetailsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	roomID := mux.Vars(r)["room_id"]
	if !strings.HasPrefix(roomID, "!") {
		respondWithError(w, http.StatusBadRequest, "Invalid room id")
		return
	}
	room, err := env.Admin.RoomDetails(r.Context(), roomID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load room")
		return
	}
	respondWithJSON(w, http.StatusOK, room)
}

// UserInfoHandler returns the homeserver's admin view of one account.
func UserInfoHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID := mux.Vars(r)["user_id"]
	if !strings.HasPrefix(userID, "@") || !strings.Contains(userID, ":") {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	info, err := env.Admin.UserInfo(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load user")
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}
