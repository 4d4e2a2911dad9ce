package service

import (
	"errors"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
)

// TransferBetweenUserCards moves funds between two cards owned by the acting
// user. All preconditions are checked up front; the debit, credit and ledger
// append then commit as one atomic unit in the repository, which re-checks
// status and funds under row locks. On any failure nothing is mutated.
func (s *Service) TransferBetweenUserCards(fromCardID, toCardID int64, amount decimal.Decimal, description string, userID int64) (*models.Transfer, error) {
	fromCard, err := s.repo.FindCardByIDAndOwner(fromCardID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.AccessDenied("source card not found or access denied")
		}
		return nil, err
	}

	toCard, err := s.repo.FindCardByIDAndOwner(toCardID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.AccessDenied("target card not found or access denied")
		}
		return nil, err
	}

	if err := validateTransfer(fromCard, toCard, amount, s.config.MaxTransferAmount); err != nil {
		return nil, err
	}

	transfer, err := s.repo.ExecuteTransfer(fromCardID, toCardID, amount, description)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transfer %d: %s from card %d to card %d for user %d",
		transfer.ID, amount.StringFixed(2), fromCardID, toCardID, userID)
	s.notifyTransfer(userID, transfer)
	return transfer, nil
}

func validateTransfer(fromCard, toCard *models.Card, amount, maxAmount decimal.Decimal) error {
	if fromCard.Status != models.CardStatusActive {
		return apperr.BusinessRule("source card is not active")
	}
	if toCard.Status != models.CardStatusActive {
		return apperr.BusinessRule("target card is not active")
	}
	if amount.Sign() <= 0 {
		return apperr.Validation("transfer amount must be positive")
	}
	if amount.Exponent() < -2 {
		return apperr.Validation("transfer amount must have at most 2 decimal places")
	}
	if amount.GreaterThan(maxAmount) {
		return apperr.Validation("transfer amount exceeds maximum limit")
	}
	if fromCard.Balance.LessThan(amount) {
		return apperr.BusinessRule("insufficient funds on source card")
	}
	if fromCard.ID == toCard.ID {
		return apperr.Validation("cannot transfer to the same card")
	}
	return nil
}

// notifyTransfer sends a best-effort email; failures are logged, never surfaced.
func (s *Service) notifyTransfer(userID int64, transfer *models.Transfer) {
	if s.notifier == nil {
		return
	}
	user, err := s.repo.FindUserByID(userID)
	if err != nil || user.Email == "" {
		return
	}
	if err := s.notifier.SendTransferNotification(user.Email, user.Username, transfer); err != nil {
		s.log.Errorf("Failed to notify user %d about transfer %d: %v", userID, transfer.ID, err)
	}
}

// GetTransferByID returns a transfer visible to an owner of either card or an admin
func (s *Service) GetTransferByID(transferID, actorID int64) (*models.Transfer, error) {
	transfer, err := s.repo.FindTransferByID(transferID)
	if err != nil {
		return nil, err
	}

	if transfer.FromOwnerID == actorID || transfer.ToOwnerID == actorID {
		return transfer, nil
	}

	isAdmin, err := s.IsAdmin(actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, apperr.AccessDenied("access denied to view this transfer")
	}
	return transfer, nil
}

// GetUserTransfers returns a page of transfers where the user owns either
// card, newest first
func (s *Service) GetUserTransfers(userID int64, page models.PageRequest) (models.Page, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return models.Page{}, err
	}
	page = page.Normalize()
	transfers, total, err := s.repo.FindTransfersByUser(userID, page)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(transfers, page, total), nil
}

// GetAllTransfers returns a page of all transfers. Admin only.
func (s *Service) GetAllTransfers(page models.PageRequest, actorID int64) (models.Page, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return models.Page{}, err
	}
	page = page.Normalize()
	transfers, total, err := s.repo.FindAllTransfers(page)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(transfers, page, total), nil
}
