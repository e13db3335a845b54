package handlers

import (
	"context"
	"net/http"

	"loralinka/internal/services"

	"go.uber.org/zap"
)

type CatalogHandler struct {
	service *services.CatalogService
	logr    *zap.Logger
}

func NewCatalogHandler(svc *services.CatalogService, logr *zap.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logr: logr}
}

func (h *CatalogHandler) ListMedicalConditions(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logr, h.service.MedicalConditions)
}

func (h *CatalogHandler) GetMedicalCondition(w http.ResponseWriter, r *http.Request) {
	serveOne(w, r, h.logr, h.service.MedicalCondition)
}

func (h *CatalogHandler) ListKinTypes(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logr, h.service.KinTypes)
}

func (h *CatalogHandler) GetKinType(w http.ResponseWriter, r *http.Request) {
	serveOne(w, r, h.logr, h.service.KinType)
}

func (h *CatalogHandler) ListAccidentTypes(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logr, h.service.AccidentTypes)
}

func (h *CatalogHandler) GetAccidentType(w http.ResponseWriter, r *http.Request) {
	serveOne(w, r, h.logr, h.service.AccidentType)
}

func (h *CatalogHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logr, h.service.Units)
}

func (h *CatalogHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	serveOne(w, r, h.logr, h.service.Unit)
}

func serveList[T any](w http.ResponseWriter, r *http.Request, logr *zap.Logger, list func(context.Context) ([]T, error)) {
	items, err := list(r.Context())
	if err != nil {
		writeError(w, logr, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func serveOne[T any](w http.ResponseWriter, r *http.Request, logr *zap.Logger, get func(context.Context, int64) (*T, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, logr, err)
		return
	}
	item, err := get(r.Context(), id)
	if err != nil {
		writeError(w, logr, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
