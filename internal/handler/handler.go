package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/middleware"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/fedinairn08/bank-rest/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
// They must be registered before the protected subrouter is created so that
// mux matches them first.
func (h *Handler) RegisterPublicRoutes(public *mux.Router) {
	public.HandleFunc("/api/auth/register", h.Register).Methods("POST")
	public.HandleFunc("/api/auth/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes mounts the token-protected API routes.
func (h *Handler) RegisterProtectedRoutes(protected *mux.Router) {
	protected.HandleFunc("/api/cards", h.CreateCard).Methods("POST")
	protected.HandleFunc("/api/cards/my", h.GetMyCards).Methods("GET")
	protected.HandleFunc("/api/cards/admin/all", h.GetAllCards).Methods("GET")
	protected.HandleFunc("/api/cards/{cardId:[0-9]+}", h.GetCard).Methods("GET")
	protected.HandleFunc("/api/cards/{cardId:[0-9]+}", h.UpdateCard).Methods("PUT")
	protected.HandleFunc("/api/cards/{cardId:[0-9]+}", h.DeleteCard).Methods("DELETE")
	protected.HandleFunc("/api/cards/{cardId:[0-9]+}/block", h.BlockCard).Methods("POST")
	protected.HandleFunc("/api/cards/{cardId:[0-9]+}/activate", h.ActivateCard).Methods("POST")

	protected.HandleFunc("/api/user/cards/transfer", h.Transfer).Methods("POST")
	protected.HandleFunc("/api/user/cards/transfers", h.GetUserTransfers).Methods("GET")
	protected.HandleFunc("/api/user/cards/total-balance", h.GetTotalBalance).Methods("GET")
	protected.HandleFunc("/api/user/cards/active", h.GetActiveCards).Methods("GET")
	protected.HandleFunc("/api/user/cards/blocked", h.GetBlockedCards).Methods("GET")
	protected.HandleFunc("/api/user/cards/{cardId:[0-9]+}/request-block", h.RequestCardBlock).Methods("POST")
	protected.HandleFunc("/api/user/cards/{cardId:[0-9]+}/balance", h.GetCardBalance).Methods("GET")

	protected.HandleFunc("/api/transfers/admin/all", h.GetAllTransfers).Methods("GET")
	protected.HandleFunc("/api/transfers/{transferId:[0-9]+}", h.GetTransfer).Methods("GET")

	protected.HandleFunc("/api/admin/users", h.GetAllUsers).Methods("GET")
	protected.HandleFunc("/api/admin/users", h.CreateUser).Methods("POST")
	protected.HandleFunc("/api/admin/users/role/{role}", h.GetUsersByRole).Methods("GET")
	protected.HandleFunc("/api/admin/users/{userId:[0-9]+}", h.GetUser).Methods("GET")
	protected.HandleFunc("/api/admin/users/{userId:[0-9]+}", h.UpdateUser).Methods("PUT")
	protected.HandleFunc("/api/admin/users/{userId:[0-9]+}", h.DeleteUser).Methods("DELETE")
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Errorf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps the four service error kinds onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, kind = http.StatusNotFound, "Resource Not Found"
	case errors.Is(err, apperr.ErrAccessDenied):
		status, kind = http.StatusForbidden, "Access Denied"
	case errors.Is(err, apperr.ErrValidation):
		status, kind = http.StatusBadRequest, "Validation Error"
	case errors.Is(err, apperr.ErrBusinessRule):
		status, kind = http.StatusBadRequest, "Business Logic Error"
	default:
		h.log.Errorf("Unexpected error on %s %s: %v", r.Method, r.URL.Path, err)
		h.respondJSON(w, http.StatusInternalServerError, newErrorResponse(
			"An unexpected error occurred", "Internal Server Error", http.StatusInternalServerError, r.URL.Path))
		return
	}
	h.respondJSON(w, status, newErrorResponse(err.Error(), kind, status, r.URL.Path))
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	h.respondJSON(w, http.StatusBadRequest, newErrorResponse(message, "Bad Request", http.StatusBadRequest, r.URL.Path))
}

// actorID returns the authenticated user id; routes behind AuthMiddleware
// always carry one.
func actorID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func pageRequest(r *http.Request) models.PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return models.PageRequest{Page: page, Size: size}.Normalize()
}

func newErrorResponse(message, kind string, status int, path string) ErrorResponse {
	return ErrorResponse{
		Message:   message,
		Error:     kind,
		Status:    status,
		Timestamp: time.Now(),
		Path:      path,
	}
}
