package directory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Handler provides HTTP handlers for the directory module
type Handler struct {
	service     *Service
	engine      *hierarchy.Engine
	provisioner Provisioner
}

// NewHandler creates a new directory handler
func NewHandler(service *Service, engine *hierarchy.Engine, provisioner Provisioner) *Handler {
	return &Handler{service: service, engine: engine, provisioner: provisioner}
}

// Routes registers the directory routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.ListMembers)
		r.Post("/", h.CreateMember)

		r.Route("/{memberID}", func(r chi.Router) {
			r.Get("/", h.GetMember)
			r.Put("/", h.UpdateMember)
			r.Post("/deactivate", h.DeactivateMember)
			r.Delete("/", h.DeleteMember)
		})
	})

	return r
}

// actorPosition resolves the authenticated actor into a hierarchy
// position, rejecting tokens carrying roles unknown to the catalog.
func (h *Handler) actorPosition(r *http.Request) (*auth.Actor, hierarchy.Position, error) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		return nil, hierarchy.Position{}, errors.PermissionDenied("authentication required")
	}

	role := hierarchy.Role(actor.Role)
	if !h.engine.Catalog().Known(role) {
		return nil, hierarchy.Position{}, errors.PermissionDenied("unknown role")
	}

	return actor, hierarchy.Position{Role: role, Territory: actor.Territory}, nil
}

// ListMembers returns the roster visible to the caller
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := Filter{
		Municipality: r.URL.Query().Get("municipality"),
		Search:       r.URL.Query().Get("search"),
	}
	if role := r.URL.Query().Get("role"); role != "" {
		rr := hierarchy.Role(role)
		filter.Role = &rr
	}

	members, err := h.service.VisibleMembers(r.Context(), position, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  members,
		"total": len(members),
	})
}

// GetMember returns a single visible member
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	_, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, errors.InvalidInput("invalid member ID", nil))
		return
	}

	member, err := h.service.GetMember(r.Context(), position, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// UpdateMember applies partial updates to a member
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	_, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, errors.InvalidInput("invalid member ID", nil))
		return
	}

	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid request body", nil))
		return
	}

	member, err := h.service.UpdateMember(r.Context(), position, id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// DeactivateMember marks a member inactive
func (h *Handler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	_, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, errors.InvalidInput("invalid member ID", nil))
		return
	}

	if err := h.service.DeactivateMember(r.Context(), position, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteMember removes a member record
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	_, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, errors.InvalidInput("invalid member ID", nil))
		return
	}

	if err := h.service.DeleteMember(r.Context(), position, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateMember provisions a new directory member
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	actor, position, err := h.actorPosition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid request body", nil))
		return
	}

	member, err := h.provisioner.Provision(r.Context(), actor.ID, position, req)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if member.PendingSync {
		// Account exists locally; credential sync will catch up.
		status = http.StatusAccepted
	}
	writeJSON(w, status, member)
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
