package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is an immutable ledger entry recording a balance movement
// between two cards. It is never updated or deleted once written.
type Transfer struct {
	ID           int64           `json:"id"`
	FromCardID   int64           `json:"from_card_id"`
	ToCardID     int64           `json:"to_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	TransferDate time.Time       `json:"transfer_date"`

	// Owner ids of both cards at read time, used for access checks.
	FromOwnerID int64 `json:"-"`
	ToOwnerID   int64 `json:"-"`
}

// TransferRequest is the transfer intent supplied by the API layer.
type TransferRequest struct {
	FromCardID  int64           `json:"from_card_id"`
	ToCardID    int64           `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}
