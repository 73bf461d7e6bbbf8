package handlers

import (
	"net/http"

	"friday/models"
	"friday/service"
)

func ListRoomsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	rooms, err := env.RoomService.AllRooms(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rooms":       rooms,
		"total_count": len(rooms),
	})
}

// SyncRoomsHandler pulls the bot's rooms from the homeserver into the local
// table.
func SyncRoomsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	rooms, err := env.Rooms.FetchAllRooms(r.Context(), env.BotUserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch rooms from Matrix")
		return
	}
	res, err := env.RoomService.SyncRooms(r.Context(), rooms)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to sync rooms")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"synced_count":  res.SyncedCount,
		"new_rooms":     res.NewRooms,
		"updated_rooms": res.UpdatedRooms,
		"message":       "Rooms synced successfully",
	})
}

func UncheckedSummaryHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	summary, err := env.RoomService.UncheckedSummary(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to summarize unchecked rooms")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

type checkRoomRequest struct {
	Notes string `json:"notes"`
}

func CheckRoomHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid room id")
		return
	}
	var req checkRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	room, err := env.RoomService.MarkChecked(r.Context(), id, req.Notes)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to mark room as checked")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"room":    room,
		"message": "Room marked as checked",
	})
}

type summarizeRoomRequest struct {
	RoomID string `json:"room_id"`
}

func SummarizeRoomHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req summarizeRoomRequest
	if err := decodeJSON(r, &req); err != nil || req.RoomID == "" {
		respondWithError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	res, err := env.RoomService.SummarizeRoomConversation(r.Context(), req.RoomID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to summarize room")
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func RoomMessagesHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req service.MessagesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.SubscriberID <= 0 || req.RoomID == "" {
		respondWithError(w, http.StatusBadRequest, "subscriber_id and room_id are required")
		return
	}

	res, err := env.Subscribers.RoomMessages(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch room messages")
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
