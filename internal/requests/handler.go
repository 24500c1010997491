package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roadside-service/internal/geo"
	"roadside-service/pkg/jwt"
	"roadside-service/pkg/roles"
	"roadside-service/pkg/validation"
)

// NameResolver looks up a mechanic's display name for assignment.
type NameResolver func(ctx context.Context, mechanicID string) (string, error)

// Handler exposes request HTTP endpoints.
type Handler struct {
	svc   *Service
	names NameResolver
}

// NewHandler wires a handler to the request service.
func NewHandler(svc *Service, names NameResolver) *Handler {
	return &Handler{svc: svc, names: names}
}

// Routes returns a chi.Router with all request routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.With(jwt.RequireCapability(roles.CreateRequest)).Post("/", h.Create)
	r.Get("/open", h.Open)
	r.With(jwt.RequireCapability(roles.ViewAllRequests)).Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/eta", h.ETA)
	r.With(jwt.RequireCapability(roles.AcceptRequest)).Patch("/{id}/accept", h.Accept)
	r.With(jwt.RequireCapability(roles.CompleteRequest)).Patch("/{id}/complete", h.Complete)
	r.With(jwt.RequireCapability(roles.CancelRequest)).Patch("/{id}/cancel", h.Cancel)
	r.With(jwt.RequireCapability(roles.ReportLocation)).Patch("/{id}/position", h.Position)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if in.ServiceName == "" || !validation.ValidateServiceCategory(in.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service name and a valid category are required"})
		return
	}
	if in.Lat != nil && in.Lng != nil && !validation.ValidateCoordinates(*in.Lat, *in.Lng) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
		return
	}

	req, err := h.svc.Create(r.Context(), claims.UserID, claims.Email, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// Open returns the requester's single open request, or null when none exists.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	req, err := h.svc.LatestOpen(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": list})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ETA computes distance and travel time from a mechanic position to the
// requester. The position comes from the query, or from the row's live
// mechanic coordinates when absent.
func (h *Handler) ETA(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.RequesterLat == nil || req.RequesterLng == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "request has no location"})
		return
	}

	var from geo.Point
	q := r.URL.Query()
	if q.Get("lat") != "" && q.Get("lng") != "" {
		from.Lat, _ = strconv.ParseFloat(q.Get("lat"), 64)
		from.Lng, _ = strconv.ParseFloat(q.Get("lng"), 64)
	} else if req.MechanicLat != nil && req.MechanicLng != nil {
		from = geo.Point{Lat: *req.MechanicLat, Lng: *req.MechanicLng}
	} else {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no mechanic position available"})
		return
	}

	to := geo.Point{Lat: *req.RequesterLat, Lng: *req.RequesterLng}
	km := geo.DistanceKm(from, to)
	eta := geo.ETAMinutes(km)
	writeJSON(w, http.StatusOK, map[string]any{
		"distance_km": km,
		"eta_minutes": eta,
		"eta_display": geo.FormatETA(eta),
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	name, err := h.names(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "unknown mechanic"})
		return
	}

	req, err := h.svc.Accept(r.Context(), claims.UserID, name, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	req, err := h.svc.Complete(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	role, ok := claims.ParsedRole()
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	req, warning, err := h.svc.Cancel(r.Context(), claims.UserID, role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"request": req}
	if warning {
		resp["warning"] = "cancelling accepted work affects your reputation"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Position(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	var pos PositionUpdate
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if !validation.ValidateCoordinates(pos.Lat, pos.Lng) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
		return
	}

	req, err := h.svc.UpdateMechanicPosition(r.Context(), claims.UserID, chi.URLParam(r, "id"), pos.Lat, pos.Lng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// writeError maps store sentinels to their HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
