package messaging

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// Handler provides HTTP handlers for the messaging module
type Handler struct {
	service *Service
	catalog *hierarchy.Catalog
}

// NewHandler creates a new messaging handler
func NewHandler(service *Service, catalog *hierarchy.Catalog) *Handler {
	return &Handler{service: service, catalog: catalog}
}

// Routes registers the messaging routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMessages)
	r.Post("/", h.SendMessage)

	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/routing", h.GetRouting)
		r.Post("/read", h.MarkRead)
	})

	return r
}

func (h *Handler) actorPosition(r *http.Request) (*auth.Actor, hierarchy.Position, error) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		return nil, hierarchy.Position{}, errors.PermissionDenied("authentication required")
	}

	role := hierarchy.Role(actor.Role)
	if !h.catalog.Known(role) {
		return nil, hierarchy.Position{}, errors.PermissionDenied("unknown role")
	}

	return actor, hierarchy.Position{Role: role, Territory: actor.Territory}, nil
}

// SendMessage classifies, persists and routes a new message
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid request body", nil))
		return
	}

	msg, decision, err := h.service.Send(r.Context(), actor.ID, position, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msg,
		"routing": decision,
	})
}

// ListMessages returns the messages visible to the caller
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	actor, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := Filter{
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		mt := MessageType(t)
		filter.Type = &mt
	}

	messages, err := h.service.VisibleMessages(r.Context(), actor.ID, position, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  messages,
		"total": len(messages),
	})
}

// GetRouting returns the on-demand routing decision for a message
func (h *Handler) GetRouting(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.actorPosition(r); err != nil {
		writeError(w, err)
		return
	}

	decision, err := h.service.Routing(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// MarkRead records the caller as a reader
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.MarkRead(r.Context(), actor.ID, position, chi.URLParam(r, "messageID")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
