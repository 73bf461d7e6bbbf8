package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"friday/models"
	"friday/repository"
)

type todoResponse struct {
	ID            int64   `json:"id"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	StatusDisplay string  `json:"status_display"`
	Notes         string  `json:"notes"`
	RoomID        *int64  `json:"room_id"`
	RoomName      *string `json:"room_name"`
}

func newTodoResponse(t *models.Todo) todoResponse {
	resp := todoResponse{
		ID:            t.ID,
		Description:   t.Description,
		Status:        t.Status,
		StatusDisplay: t.StatusDisplay(),
		Notes:         t.Notes,
		RoomID:        t.RoomID,
	}
	if t.RoomID != nil {
		name := t.RoomName
		resp.RoomName = &name
	}
	return resp
}

type createTodoRequest struct {
	Description string `json:"description"`
	RoomID      *int64 `json:"room_id"`
	Notes       string `json:"notes"`
}

func CreateTodoHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req createTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.RoomID != nil && *req.RoomID == 0 {
		req.RoomID = nil
	}

	todo, err := env.Todos.Create(r.Context(), req.Description, req.RoomID, req.Notes)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create todo")
		return
	}
	respondWithJSON(w, http.StatusOK, newTodoResponse(todo))
}

func GetTodoHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid todo id")
		return
	}
	todo, err := env.Todos.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get todo")
		return
	}
	respondWithJSON(w, http.StatusOK, newTodoResponse(todo))
}

type todoStatusRequest struct {
	Status string `json:"status"`
}

func UpdateTodoStatusHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid todo id")
		return
	}
	var req todoStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	todo, err := env.Todos.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update todo")
		return
	}
	respondWithJSON(w, http.StatusOK, newTodoResponse(todo))
}

func DeleteTodoHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid todo id")
		return
	}
	if err := env.Todos.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete todo")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Todo deleted successfully",
	})
}

// ListTodosHandler serves the operator todo list: filters status, room and q,
// plus page.
func ListTodosHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	q := r.URL.Query()
	filter := repository.TodoFilter{
		Status: q.Get("status"),
		Query:  strings.TrimSpace(q.Get("q")),
	}
	if room, err := strconv.ParseInt(q.Get("room"), 10, 64); err == nil {
		filter.RoomID = room
	}
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	result, err := env.Todos.List(r.Context(), filter, page)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list todos")
		return
	}
	stats, err := env.Todos.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load todo stats")
		return
	}

	todos := make([]todoResponse, 0, len(result.Todos))
	for _, t := range result.Todos {
		todos = append(todos, newTodoResponse(t))
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"todos": todos,
		"stats": stats,
		"page": map[string]interface{}{
			"number":       result.Page,
			"total_pages":  result.TotalPages,
			"total":        result.Total,
			"has_next":     result.HasNext,
			"has_previous": result.HasPrev,
		},
		"filters": map[string]interface{}{
			"status": filter.Status,
			"room":   filter.RoomID,
			"q":      filter.Query,
		},
	})
}
