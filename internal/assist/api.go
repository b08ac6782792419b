package assist

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// Handler provides HTTP handlers for the content-assist gateway
type Handler struct {
	client  *Client
	catalog *hierarchy.Catalog
}

// NewHandler creates a new assist handler
func NewHandler(client *Client, catalog *hierarchy.Catalog) *Handler {
	return &Handler{client: client, catalog: catalog}
}

// Routes registers the assist routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/generate", h.Generate)
	return r
}

type generateRequest struct {
	Prompt      string `json:"prompt"`
	MessageType string `json:"message_type,omitempty"`
}

// Generate produces assisted content for the caller
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.PermissionDenied("authentication required"))
		return
	}

	role := hierarchy.Role(actor.Role)
	if !h.catalog.Known(role) {
		writeError(w, errors.PermissionDenied("unknown role"))
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid request body", nil))
		return
	}

	result, err := h.client.Generate(r.Context(), req.Prompt, Context{
		ActorRole:   role,
		Territory:   actor.Territory,
		MessageType: req.MessageType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

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
