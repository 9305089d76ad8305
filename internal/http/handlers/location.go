package handlers

import (
	"errors"
	"net/http"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

// LocationHandler handles courier location pushes.
type LocationHandler struct {
	index  locationIndex
	logger logx.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(logger logx.Logger, idx locationIndex) *LocationHandler {
	return &LocationHandler{index: idx, logger: logger}
}

// Update handles POST /couriers/{id}/location. A (0,0) ping is accepted and
// dropped; couriers default to it before their first GPS fix.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	courierID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	err = h.index.UpdateLocation(r.Context(), courierID, domain.GeoPoint{Lat: req.Lat, Lng: req.Lng})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "coordinates out of range")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Online handles POST /couriers/{id}/online, a connect ping that refreshes
// the courier's online flag without moving the stored point.
func (h *LocationHandler) Online(w http.ResponseWriter, r *http.Request) {
	courierID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.index.MarkOnline(r.Context(), courierID); err != nil {
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Offline handles DELETE /couriers/{id}/location and removes the courier
// from matching.
func (h *LocationHandler) Offline(w http.ResponseWriter, r *http.Request) {
	courierID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.index.MarkOffline(r.Context(), courierID); err != nil {
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
