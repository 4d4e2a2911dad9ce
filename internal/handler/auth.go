package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fedinairn08/bank-rest/internal/apperr"
)

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	user, err := h.svc.Register(req.Username, req.Password, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	token, user, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrAccessDenied) {
			h.respondJSON(w, http.StatusUnauthorized, newErrorResponse(
				"Invalid username or password", "Authentication Failed", http.StatusUnauthorized, r.URL.Path))
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}
