package hierarchy

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// Handler exposes the role catalog over HTTP. Read-only: the catalog is
// static configuration, verified at startup.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new hierarchy handler
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes registers the hierarchy routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/roles", h.ListRoles)
	r.Get("/creatable-roles", h.CreatableRoles)
	return r
}

type roleEntry struct {
	Role  Role  `json:"role"`
	Rank  int   `json:"rank"`
	Scope Scope `json:"scope"`
}

// ListRoles returns the role catalog ordered by rank
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Catalog()

	entries := make([]roleEntry, 0, len(catalog.Roles()))
	for _, role := range catalog.Roles() {
		rank, err := catalog.RankOf(role)
		if err != nil {
			writeError(w, err)
			return
		}
		scope, err := catalog.ScopeOf(role)
		if err != nil {
			writeError(w, err)
			return
		}
		entries = append(entries, roleEntry{Role: role, Rank: rank, Scope: scope})
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// CreatableRoles returns the roles a role may provision. Defaults to
// the caller's own role; ?role= overrides for role-picker UIs, which is
// safe because the answer is advisory and enforcement happens at
// provisioning time.
func (h *Handler) CreatableRoles(w http.ResponseWriter, r *http.Request) {
	role := Role(r.URL.Query().Get("role"))
	if role == "" {
		actor := auth.GetActor(r.Context())
		if actor == nil {
			writeError(w, errors.PermissionDenied("authentication required"))
			return
		}
		role = Role(actor.Role)
	}

	if !h.engine.Catalog().Known(role) {
		writeError(w, errors.InvalidInput("unknown role", map[string]string{"role": string(role)}))
		return
	}

	roles, err := h.engine.CreatableRoles(role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": roles})
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
