package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"loralinka/internal/models"
	"loralinka/internal/services"
	"loralinka/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

// writeError maps service and validation errors to status codes.
func writeError(w http.ResponseWriter, logr *zap.Logger, err error) {
	var paramErr *utils.ParamError
	switch {
	case errors.As(err, &paramErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: paramErr.Error()})
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "password: is too long"})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrUnitNameTaken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Emergency unit name already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Invalid phone or password"})
	case errors.Is(err, services.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Detail: err.Error()})
	default:
		logr.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}

func invalid(field, message string) error {
	return &utils.ParamError{Param: field, Message: message}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalid("body", "invalid JSON payload")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid(name, "must be a positive integer")
	}
	return id, nil
}

func checkLatitude(field string, v float64) error {
	if v < -90 || v > 90 {
		return invalid(field, "must be between -90 and 90")
	}
	return nil
}

func checkLongitude(field string, v float64) error {
	if v < -180 || v > 180 {
		return invalid(field, "must be between -180 and 180")
	}
	return nil
}

func checkLength(field, v string, maxLen int) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, "is required")
	}
	if len(v) > maxLen {
		return invalid(field, "is too long")
	}
	return nil
}

// parseExpand reads ?expand=accident_type,unit,user. Absent means everything; "none" means nothing.
func parseExpand(r *http.Request) (models.Expansions, error) {
	names := utils.ParseQueryList(r.URL.Query(), "expand")
	if names == nil {
		return models.ExpandAll, nil
	}

	var x models.Expansions
	for _, name := range names {
		switch name {
		case "accident_type":
			x.AccidentType = true
		case "unit":
			x.Unit = true
		case "user":
			x.Reporter = true
		case "none":
		default:
			return x, invalid("expand", "unknown expansion "+strconv.Quote(name))
		}
	}
	return x, nil
}
