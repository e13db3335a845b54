package handlers

import (
	"net/http"

	"loralinka/internal/models"
	"loralinka/internal/services"
	"loralinka/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultRadiusKm = 10.0
	minRadiusKm     = 0.1
	maxRadiusKm     = 100.0
)

type EmergencyUnitHandler struct {
	service *services.EmergencyUnitService
	logr    *zap.Logger
}

func NewEmergencyUnitHandler(svc *services.EmergencyUnitService, logr *zap.Logger) *EmergencyUnitHandler {
	return &EmergencyUnitHandler{service: svc, logr: logr}
}

type unitBody struct {
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitud"`
	Longitude *float64 `json:"longitud"`
}

func (b unitBody) validate(partial bool) error {
	if b.Name != nil || !partial {
		var name string
		if b.Name != nil {
			name = *b.Name
		}
		if err := checkLength("name", name, 255); err != nil {
			return err
		}
	}
	if b.Latitude == nil && !partial {
		return invalid("latitud", "is required")
	}
	if b.Latitude != nil {
		if err := checkLatitude("latitud", *b.Latitude); err != nil {
			return err
		}
	}
	if b.Longitude == nil && !partial {
		return invalid("longitud", "is required")
	}
	if b.Longitude != nil {
		if err := checkLongitude("longitud", *b.Longitude); err != nil {
			return err
		}
	}
	return nil
}

// CreateUnit handles POST /emergency-units
func (h *EmergencyUnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var body unitBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := body.validate(false); err != nil {
		writeError(w, h.logr, err)
		return
	}

	unit, err := h.service.Create(r.Context(), models.CreateUnitRequest{
		Name:      *body.Name,
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
	})
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

// GetUnit handles GET /emergency-units/{id}
func (h *EmergencyUnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	unit, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// GetUnitStats handles GET /emergency-units/{id}/stats
func (h *EmergencyUnitHandler) GetUnitStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	stats, err := h.service.GetWithStats(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUnits handles GET /emergency-units?skip&limit
func (h *EmergencyUnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := utils.Pagination(r.URL.Query())
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	units, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

// SearchNearby handles GET /emergency-units/search/nearby?latitude&longitude&radius_km
func (h *EmergencyUnitHandler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := utils.QueryFloat(q, "latitude", nil, -90, 90)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	lon, err := utils.QueryFloat(q, "longitude", nil, -180, 180)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	def := defaultRadiusKm
	radius, err := utils.QueryFloat(q, "radius_km", &def, minRadiusKm, maxRadiusKm)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	units, err := h.service.FindNearby(r.Context(), models.NearbyQueryParams{
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  radius,
	})
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

// UpdateUnit handles PUT /emergency-units/{id}
func (h *EmergencyUnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	var body unitBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := body.validate(true); err != nil {
		writeError(w, h.logr, err)
		return
	}

	unit, err := h.service.Update(r.Context(), id, models.UpdateUnitRequest{
		Name:      body.Name,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	})
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// DeleteUnit handles DELETE /emergency-units/{id}
func (h *EmergencyUnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logr, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
