package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fedinairn08/bank-rest/internal/models"
)

// Transfer moves funds between two cards owned by the caller
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	transfer, err := h.svc.TransferBetweenUserCards(req.FromCardID, req.ToCardID, req.Amount, req.Description, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toTransferResponse(transfer))
}

// GetTransfer returns one transfer (involved owner or admin)
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := pathID(r, "transferId")
	if err != nil {
		h.badRequest(w, r, "Invalid transfer id")
		return
	}

	transfer, err := h.svc.GetTransferByID(transferID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toTransferResponse(transfer))
}

// GetUserTransfers returns a page of the caller's transfers, newest first
func (h *Handler) GetUserTransfers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetUserTransfers(actorID(r), pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page.Content = toTransferResponses(page.Content.([]*models.Transfer))
	h.respondJSON(w, http.StatusOK, page)
}

// GetAllTransfers returns a page of all transfers (admin only)
func (h *Handler) GetAllTransfers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetAllTransfers(pageRequest(r), actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page.Content = toTransferResponses(page.Content.([]*models.Transfer))
	h.respondJSON(w, http.StatusOK, page)
}
