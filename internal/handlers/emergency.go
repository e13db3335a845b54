package handlers

import (
	"net/http"

	"loralinka/internal/models"
	"loralinka/internal/services"
	"loralinka/internal/utils"

	"go.uber.org/zap"
)

type EmergencyHandler struct {
	service *services.EmergencyService
	logr    *zap.Logger
}

func NewEmergencyHandler(svc *services.EmergencyService, logr *zap.Logger) *EmergencyHandler {
	return &EmergencyHandler{service: svc, logr: logr}
}

// CreateEmergency handles POST /emergencies
func (h *EmergencyHandler) CreateEmergency(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEmergencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := validateEmergency(req); err != nil {
		writeError(w, h.logr, err)
		return
	}

	e, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetEmergency handles GET /emergencies/{id}
func (h *EmergencyHandler) GetEmergency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	expand, err := parseExpand(r)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	e, err := h.service.Get(r.Context(), id, expand)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ListEmergencies handles GET /emergencies?skip&limit&status_filter
func (h *EmergencyHandler) ListEmergencies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, limit, err := utils.Pagination(q)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	expand, err := parseExpand(r)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	params := models.EmergencyListParams{Skip: skip, Limit: limit}
	if q.Get("status_filter") != "" {
		v, err := utils.QueryInt(q, "status_filter", 0, int(models.StatusPending), int(models.StatusClosed))
		if err != nil {
			writeError(w, h.logr, err)
			return
		}
		status := models.EmergencyStatus(v)
		params.Status = &status
	}

	emergencies, err := h.service.List(r.Context(), params, expand)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencies)
}

// ListUserEmergencies handles GET /emergencies/user/{user_id}
func (h *EmergencyHandler) ListUserEmergencies(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	expand, err := parseExpand(r)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	emergencies, err := h.service.ListByUser(r.Context(), userID, expand)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencies)
}

// AssignUnit handles PUT /emergencies/{id}/assign-unit?unit_id=
func (h *EmergencyHandler) AssignUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	unitID, err := utils.QueryInt64(r.URL.Query(), "unit_id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	e, err := h.service.Assign(r.Context(), id, unitID)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateEmergency handles PUT /emergencies/{id}
func (h *EmergencyHandler) UpdateEmergency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	var req models.UpdateEmergencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, h.logr, invalid("status", "must be 1, 2 or 3"))
		return
	}

	e, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func validateEmergency(req models.CreateEmergencyRequest) error {
	if req.Latitude == nil {
		return invalid("latitud", "is required")
	}
	if err := checkLatitude("latitud", *req.Latitude); err != nil {
		return err
	}
	if req.Longitude == nil {
		return invalid("longitud", "is required")
	}
	if err := checkLongitude("longitud", *req.Longitude); err != nil {
		return err
	}
	if req.Status != nil && !req.Status.Valid() {
		return invalid("status", "must be 1, 2 or 3")
	}
	return nil
}
