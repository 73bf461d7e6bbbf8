package handlers

import (
	"net/http"

	"friday/models"
	"friday/service"
)

// subscriberView adds the bridge puppet id the subscriber writes from.
type subscriberView struct {
	*models.Subscriber
	MatrixID string `json:"matrix_id,omitempty"`
}

func ListSubscribersHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	subs, err := env.Subscribers.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list subscribers")
		return
	}
	views := make([]subscriberView, 0, len(subs))
	for _, s := range subs {
		views = append(views, subscriberView{Subscriber: s, MatrixID: s.MatrixID(env.BridgeDomain)})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"subscribers": views,
		"total":       len(views),
	})
}

func ListSubscriberRoomsHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid subscriber id")
		return
	}
	rooms, err := env.Subscribers.ListRooms(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list subscriber rooms")
		return
	}
	if rooms == nil {
		rooms = []*models.SubscriberRoom{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"total": len(rooms),
	})
}

func AddSubscriberRoomHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid subscriber id")
		return
	}
	var in service.AddRoomInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	room, err := env.Subscribers.AddRoom(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add room")
		return
	}
	respondWithJSON(w, http.StatusCreated, room)
}
