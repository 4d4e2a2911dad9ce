package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fedinairn08/bank-rest/internal/models"
)

// CreateCard handles card registration (admin only)
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	card, err := h.svc.CreateCard(req, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toCardResponse(card))
}

// GetCard returns a single card (owner or admin)
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	card, err := h.svc.GetCardByID(cardID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponse(card))
}

// GetMyCards returns a page of the caller's cards
func (h *Handler) GetMyCards(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetUserCards(actorID(r), pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page.Content = toCardResponses(page.Content.([]*models.Card))
	h.respondJSON(w, http.StatusOK, page)
}

// GetAllCards returns a page of all cards (admin only)
func (h *Handler) GetAllCards(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetAllCards(pageRequest(r), actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page.Content = toCardResponses(page.Content.([]*models.Card))
	h.respondJSON(w, http.StatusOK, page)
}

// UpdateCard applies a partial card update (owner or admin)
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	var req models.UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid JSON format in request body")
		return
	}

	card, err := h.svc.UpdateCard(cardID, req, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponse(card))
}

// BlockCard sets the card status to BLOCKED (owner or admin)
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, h.svc.BlockCard)
}

// ActivateCard sets the card status to ACTIVE (owner or admin)
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, h.svc.ActivateCard)
}

func (h *Handler) setCardStatus(w http.ResponseWriter, r *http.Request, op func(int64, int64) (*models.Card, error)) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	card, err := op(cardID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponse(card))
}

// DeleteCard removes a card with zero balance (owner or admin)
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	if err := h.svc.DeleteCard(cardID, actorID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestCardBlock lets the card owner block their card
func (h *Handler) RequestCardBlock(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	card, err := h.svc.RequestCardBlock(cardID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponse(card))
}

// GetCardBalance returns the balance of one card
func (h *Handler) GetCardBalance(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, r, "Invalid card id")
		return
	}

	balance, err := h.svc.GetCardBalance(cardID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// GetTotalBalance returns the sum across all of the caller's cards
func (h *Handler) GetTotalBalance(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.GetUserTotalBalance(actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"total_balance": total})
}

// GetActiveCards returns all of the caller's ACTIVE cards
func (h *Handler) GetActiveCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.GetUserActiveCards(actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponses(cards))
}

// GetBlockedCards returns all of the caller's BLOCKED cards
func (h *Handler) GetBlockedCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.GetUserBlockedCards(actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toCardResponses(cards))
}
