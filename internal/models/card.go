package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the two-state card lifecycle status.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

// Card represents a bank card
type Card struct {
	ID           int64           `json:"id"`
	Number       string          `json:"-"` // AES-encrypted, never serialized
	NumberHash   string          `json:"-"` // Deterministic HMAC fingerprint for uniqueness
	MaskedNumber string          `json:"masked_number"`
	CardHolder   string          `json:"card_holder"`
	Expiry       string          `json:"expiry"` // YYYY-MM
	Status       CardStatus      `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	OwnerID      int64           `json:"owner_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateCardRequest carries the fields needed to register a new card.
type CreateCardRequest struct {
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	Expiry     string `json:"expiry"`
	UserID     int64  `json:"user_id"`
}

// UpdateCardRequest carries a partial card update. Nil fields are left unchanged.
type UpdateCardRequest struct {
	CardHolder *string     `json:"card_holder"`
	Expiry     *string     `json:"expiry"`
	Status     *CardStatus `json:"status"`
}
