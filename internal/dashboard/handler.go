package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roadside-service/pkg/jwt"
	"roadside-service/pkg/roles"
)

// Handler exposes the partitioned pool view over HTTP.
type Handler struct{ svc Service }

// NewHandler wires a handler to the request service.
func NewHandler(svc Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router for the /dashboard mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.With(jwt.RequireCapability(roles.ViewAllRequests)).Get("/", h.View)
	return r
}

// View returns the pool partitioned for the acting mechanic.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	v := Partition(list, claims.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"pending":     v.Pending,
		"in_progress": v.InProgress,
		"completed":   v.Completed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
