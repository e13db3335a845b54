package handlers

import (
	"fmt"
	"net/http"

	"loralinka/internal/auth"
	"loralinka/internal/models"
	"loralinka/internal/services"
	"loralinka/internal/utils"

	"go.uber.org/zap"
)

type UserHandler struct {
	service *services.UserService
	logr    *zap.Logger
}

func NewUserHandler(svc *services.UserService, logr *zap.Logger) *UserHandler {
	return &UserHandler{service: svc, logr: logr}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := validateNewUser(req); err != nil {
		writeError(w, h.logr, err)
		return
	}

	u, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if req.Phone == "" || req.Password == "" {
		writeError(w, h.logr, invalid("phone", "phone and password are required"))
		return
	}

	u, err := h.service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /users?skip&limit
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := utils.Pagination(r.URL.Query())
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	users, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	var req models.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	if err := validateUserPatch(req); err != nil {
		writeError(w, h.logr, err)
		return
	}

	u, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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

func validateNewUser(req models.CreateUserRequest) error {
	if err := checkLength("name", req.Name, 255); err != nil {
		return err
	}
	if err := checkLength("phone", req.Phone, 20); err != nil {
		return err
	}
	if err := checkPassword(req.Password); err != nil {
		return err
	}
	for _, c := range req.EmergencyContacts {
		if c.ContactPhone != nil && len(*c.ContactPhone) > 20 {
			return invalid("contact_phone", "is too long")
		}
		if c.ContactName != nil && len(*c.ContactName) > 255 {
			return invalid("contact_name", "is too long")
		}
	}
	return nil
}

func validateUserPatch(req models.UpdateUserRequest) error {
	if req.Name != nil {
		if err := checkLength("name", *req.Name, 255); err != nil {
			return err
		}
	}
	if req.Phone != nil {
		if err := checkLength("phone", *req.Phone, 20); err != nil {
			return err
		}
	}
	if req.Password != nil {
		if err := checkPassword(*req.Password); err != nil {
			return err
		}
	}
	return nil
}

func checkPassword(pw string) error {
	if pw == "" {
		return invalid("password", "is required")
	}
	if len(pw) > auth.MaxPasswordBytes {
		return invalid("password", fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}
