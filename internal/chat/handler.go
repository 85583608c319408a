package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ira/internal/apierr"
	"ira/internal/auth"
)

type SendHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *SendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Auth("Not authorized"))
		return
	}
	var payload struct {
		Text    string `json:"text"`
		Session string `json:"session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierr.Write(w, apierr.Validation("invalid request body"))
		return
	}
	reply, err := h.Service.Send(r.Context(), user.ID, payload.Text, payload.Session)
	if err != nil {
		h.Logger.Error("send chat message", "err", err, "user_id", user.ID)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]string{"reply": reply.Text})
}

type HistoryHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Auth("Not authorized"))
		return
	}
	session := r.PathValue("session")
	msgs, err := h.Service.History(r.Context(), user.ID, session)
	if err != nil {
		h.Logger.Error("chat history", "err", err, "user_id", user.ID)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, msgs)
}
