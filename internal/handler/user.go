package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/gorilla/mux"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// GetAllUsers returns a page of all users (admin only)
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetAllUsers(pageRequest(r), actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page.Content = toUserResponses(page.Content.([]*models.User))
	h.respondJSON(w, http.StatusOK, page)
}

// GetUser returns a single user (self or admin)
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.badRequest(w, r, "Invalid user id")
		return
	}

	user, err := h.svc.GetUserByID(userID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// CreateUser creates a user with an explicit role (admin only)
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	user, err := h.svc.CreateUser(req.Username, req.Password, req.Email, req.Role, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// UpdateUser applies a partial user update (admin only)
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.badRequest(w, r, "Invalid user id")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	user, err := h.svc.UpdateUser(userID, req, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser removes a user without card balances (admin only)
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.badRequest(w, r, "Invalid user id")
		return
	}

	if err := h.svc.DeleteUser(userID, actorID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUsersByRole lists users carrying the given role (admin only)
func (h *Handler) GetUsersByRole(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]

	users, err := h.svc.GetUsersByRole(role, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserResponses(users))
}
