package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ira/internal/apierr"
)

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type RegisterHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierr.Write(w, apierr.Validation("invalid request body"))
		return
	}
	user, token, err := h.Service.Register(r.Context(), in)
	if err != nil {
		if apierr.From(err).Kind == apierr.KindInternal {
			h.Logger.Error("register user", "err", err)
		}
		apierr.Write(w, err)
		return
	}
	h.Logger.Info("user registered", "user_id", user.ID)
	apierr.JSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type LoginHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierr.Write(w, apierr.Validation("invalid request body"))
		return
	}
	user, token, err := h.Service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			h.Logger.Error("login", "err", err)
		}
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
