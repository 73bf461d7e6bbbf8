package handlers

import (
	"net/http"

	"friday/llm"
)

type llmContextRequest struct {
	Messages []llm.MessageItem `json:"messages"`
}

func LLMContextHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req llmContextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	respondWithJSON(w, http.StatusOK, env.LLM.BuildContext(req.Messages))
}
