package handler

import (
	"time"

	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
)

// Response types are converted from storage records by hand; no reflection
// or dynamic field matching.

type ErrorResponse struct {
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CardResponse struct {
	ID           int64           `json:"id"`
	MaskedNumber string          `json:"masked_number"`
	CardHolder   string          `json:"card_holder"`
	Expiry       string          `json:"expiry"`
	Status       string          `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	OwnerID      int64           `json:"owner_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

type TransferResponse struct {
	ID           int64           `json:"id"`
	FromCardID   int64           `json:"from_card_id"`
	ToCardID     int64           `json:"to_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	TransferDate time.Time       `json:"transfer_date"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toCardResponse(c *models.Card) CardResponse {
	return CardResponse{
		ID:           c.ID,
		MaskedNumber: c.MaskedNumber,
		CardHolder:   c.CardHolder,
		Expiry:       c.Expiry,
		Status:       string(c.Status),
		Balance:      c.Balance,
		OwnerID:      c.OwnerID,
		CreatedAt:    c.CreatedAt,
	}
}

func toCardResponses(cards []*models.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	return out
}

func toTransferResponse(t *models.Transfer) TransferResponse {
	return TransferResponse{
		ID:           t.ID,
		FromCardID:   t.FromCardID,
		ToCardID:     t.ToCardID,
		Amount:       t.Amount,
		Description:  t.Description,
		TransferDate: t.TransferDate,
	}
}

func toTransferResponses(transfers []*models.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransferResponse(t))
	}
	return out
}
