package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"friday/middleware"
)

// NewRouter wires every route. tokens guards the operator-only routes.
func NewRouter(env *Env, tokens middleware.TokenParser) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Handle("/metrics", middleware.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/_matrix/client/v3/login", WithEnv(MatrixLoginHandler, env)).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", WithEnv(OperatorLoginHandler, env)).Methods(http.MethodPost)

	api.HandleFunc("/rooms", WithEnv(ListRoomsHandler, env)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/sync", WithEnv(SyncRoomsHandler, env)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/unchecked/summary", WithEnv(UncheckedSummaryHandler, env)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/summarize", WithEnv(SummarizeRoomHandler, env)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/messages", WithEnv(RoomMessagesHandler, env)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id:[0-9]+}/check", WithEnv(CheckRoomHandler, env)).Methods(http.MethodPost)

	api.HandleFunc("/whatsapp/rooms", WithEnv(WhatsAppRoomsHandler, env)).Methods(http.MethodGet)
	api.HandleFunc("/llm/context", WithEnv(LLMContextHandler, env)).Methods(http.MethodPost)

	api.HandleFunc("/todos", WithEnv(CreateTodoHandler, env)).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id:[0-9]+}", WithEnv(GetTodoHandler, env)).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id:[0-9]+}", WithEnv(DeleteTodoHandler, env)).Methods(http.MethodDelete)
	api.HandleFunc("/todos/{id:[0-9]+}/status", WithEnv(UpdateTodoStatusHandler, env)).Methods(http.MethodPatch)

	ops := api.NewRoute().Subrouter()
	ops.Use(middleware.RequireOperator(tokens))
	ops.HandleFunc("/auth/me", WithEnv(CurrentOperatorHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/dashboard", WithEnv(DashboardHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/todos", WithEnv(ListTodosHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/settings", WithEnv(GetSettingsHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/settings", WithEnv(UpdateSettingsHandler, env)).Methods(http.MethodPut)
	ops.HandleFunc("/subscribers", WithEnv(ListSubscribersHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/subscribers/{id:[0-9]+}/rooms", WithEnv(ListSubscriberRoomsHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/subscribers/{id:[0-9]+}/rooms", WithEnv(AddSubscriberRoomHandler, env)).Methods(http.MethodPost)
	ops.HandleFunc("/matrix/rooms/{room_id}", WithEnv(RoomDetailsHandler, env)).Methods(http.MethodGet)
	ops.HandleFunc("/matrix/users/{user_id}", WithEnv(UserInfoHandler, env)).Methods(http.MethodGet)

	return r
}
