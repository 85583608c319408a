package incidents

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"ira/internal/apierr"
	"ira/internal/auth"
)

// ListHandler serves GET (list) and POST (create) on /api/incidents. The
// router only sends it those two methods.
type ListHandler struct {
	Store  Store
	Logger *slog.Logger
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Auth("Not authorized"))
		return
	}
	if r.Method == http.MethodPost {
		h.create(w, r, user)
		return
	}
	h.list(w, r)
}

func (h *ListHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	incs, err := h.Store.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("list incidents", "err", err)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, incs)
}

func (h *ListHandler) create(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var payload struct {
		Title    string   `json:"title"`
		Severity Severity `json:"severity"`
		Status   Status   `json:"status"`
		Service  string   `json:"service"`
		Message  string   `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierr.Write(w, apierr.Validation("invalid request body"))
		return
	}
	inc := &Incident{
		Title:     payload.Title,
		Severity:  payload.Severity,
		Status:    payload.Status,
		Service:   payload.Service,
		Message:   payload.Message,
		CreatedBy: Creator{ID: user.ID, Name: user.Name},
	}
	if err := h.Store.Create(r.Context(), inc); err != nil {
		if apierr.From(err).Kind == apierr.KindInternal {
			h.Logger.Error("create incident", "err", err, "user_id", user.ID)
		}
		apierr.Write(w, err)
		return
	}
	h.Logger.Info("incident created", "id", inc.ID, "severity", inc.Severity, "user_id", user.ID)
	apierr.JSON(w, http.StatusCreated, inc)
}

func parseFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{}
	if status := q.Get("status"); status != "" {
		filter.Status = Status(status)
		if !filter.Status.Valid() {
			return filter, apierr.Validation("invalid status filter")
		}
	}
	if severity := q.Get("severity"); severity != "" {
		filter.Severity = Severity(severity)
		if !filter.Severity.Valid() {
			return filter, apierr.Validation("invalid severity filter")
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			return filter, apierr.Validation("invalid limit")
		}
		filter.Limit = l
	}
	return filter, nil
}

// DetailHandler serves GET and PATCH on /api/incidents/{id}. The router only
// sends it those two methods.
type DetailHandler struct {
	Store  Store
	Logger *slog.Logger
}

func (h *DetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Auth("Not authorized"))
		return
	}
	id := r.PathValue("id")
	// Ids are UUIDs; anything else cannot name a stored incident.
	if _, err := uuid.Parse(id); err != nil {
		apierr.Write(w, ErrNotFound)
		return
	}

	if r.Method == http.MethodPatch {
		h.update(w, r, id, user)
		return
	}
	inc, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.logInternal("get incident", err, id)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, inc)
}

func (h *DetailHandler) update(w http.ResponseWriter, r *http.Request, id string, user *auth.User) {
	patch, err := decodePatch(r.Body)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	inc, err := h.Store.Update(r.Context(), id, patch)
	if err != nil {
		h.logInternal("update incident", err, id)
		apierr.Write(w, err)
		return
	}
	h.Logger.Info("incident updated", "id", id, "status", inc.Status, "user_id", user.ID)
	apierr.JSON(w, http.StatusOK, inc)
}

func (h *DetailHandler) logInternal(msg string, err error, id string) {
	if apierr.From(err).Kind == apierr.KindInternal {
		h.Logger.Error(msg, "err", err, "id", id)
	}
}

// decodePatch rejects fields outside the patchable set.
func decodePatch(body io.Reader) (Patch, error) {
	var p Patch
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return p, apierr.Validation("request body is required")
		}
		return p, apierr.Validation("invalid request body: " + err.Error())
	}
	return p, nil
}
