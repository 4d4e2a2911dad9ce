package service

import (
	"time"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/fedinairn08/bank-rest/internal/utils"
	"github.com/shopspring/decimal"
)

// CreateCard registers a new card for a user. Admin only. The card number is
// stored encrypted; uniqueness is enforced on a deterministic fingerprint.
// New cards start ACTIVE with a zero balance.
func (s *Service) CreateCard(req models.CreateCardRequest, actorID int64) (*models.Card, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}

	if !utils.ValidCardNumber(req.CardNumber) {
		return nil, apperr.Validation("invalid card number format")
	}
	if len(req.CardHolder) < 2 || len(req.CardHolder) > 100 {
		return nil, apperr.Validation("card holder name must be between 2 and 100 characters")
	}
	if _, err := time.Parse("2006-01", req.Expiry); err != nil {
		return nil, apperr.Validation("expiry must be in YYYY-MM format")
	}

	owner, err := s.repo.FindUserByID(req.UserID)
	if err != nil {
		return nil, err
	}

	numberHash := utils.Fingerprint(req.CardNumber, s.config.HMACSecret)
	exists, err := s.repo.ExistsCardByNumberHash(numberHash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.BusinessRule("card with this number already exists")
	}

	encryptedNumber, err := utils.Encrypt(req.CardNumber, []byte(s.config.EncryptionKey))
	if err != nil {
		return nil, apperr.BusinessRule("encryption failed: %v", err)
	}

	card := &models.Card{
		Number:       encryptedNumber,
		NumberHash:   numberHash,
		MaskedNumber: utils.MaskCardNumber(req.CardNumber),
		CardHolder:   req.CardHolder,
		Expiry:       req.Expiry,
		Status:       models.CardStatusActive,
		Balance:      decimal.Zero,
		OwnerID:      owner.ID,
	}

	if err := s.repo.CreateCard(card); err != nil {
		return nil, err
	}

	s.log.Infof("Card %s created for user %d", card.MaskedNumber, owner.ID)
	return card, nil
}

// GetCardByID returns a card visible to its owner or an admin
func (s *Service) GetCardByID(cardID, actorID int64) (*models.Card, error) {
	card, err := s.repo.FindCardByID(cardID)
	if err != nil {
		return nil, err
	}

	ok, err := s.canAccess(actorID, card.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.AccessDenied("access denied")
	}
	return card, nil
}

// GetUserCards returns a page of the user's own cards
func (s *Service) GetUserCards(userID int64, page models.PageRequest) (models.Page, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return models.Page{}, err
	}
	page = page.Normalize()
	cards, total, err := s.repo.FindCardsByOwner(userID, page)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(cards, page, total), nil
}

// GetAllCards returns a page of all cards. Admin only.
func (s *Service) GetAllCards(page models.PageRequest, actorID int64) (models.Page, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return models.Page{}, err
	}
	page = page.Normalize()
	cards, total, err := s.repo.FindAllCards(page)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(cards, page, total), nil
}

// UpdateCard applies a partial update to a card. Owner or admin.
// Only non-nil request fields overwrite existing values.
func (s *Service) UpdateCard(cardID int64, req models.UpdateCardRequest, actorID int64) (*models.Card, error) {
	card, err := s.repo.FindCardByID(cardID)
	if err != nil {
		return nil, err
	}

	ok, err := s.canAccess(actorID, card.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.AccessDenied("access denied")
	}

	if req.CardHolder != nil {
		if len(*req.CardHolder) < 2 || len(*req.CardHolder) > 100 {
			return nil, apperr.Validation("card holder name must be between 2 and 100 characters")
		}
		card.CardHolder = *req.CardHolder
	}
	if req.Expiry != nil {
		if _, err := time.Parse("2006-01", *req.Expiry); err != nil {
			return nil, apperr.Validation("expiry must be in YYYY-MM format")
		}
		card.Expiry = *req.Expiry
	}
	if req.Status != nil {
		if *req.Status != models.CardStatusActive && *req.Status != models.CardStatusBlocked {
			return nil, apperr.Validation("unknown card status: %s", *req.Status)
		}
		card.Status = *req.Status
	}

	if err := s.repo.UpdateCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

// BlockCard sets the card status to BLOCKED. Owner or admin.
func (s *Service) BlockCard(cardID, actorID int64) (*models.Card, error) {
	return s.updateCardStatus(cardID, models.CardStatusBlocked, actorID)
}

// ActivateCard sets the card status to ACTIVE. Owner or admin.
func (s *Service) ActivateCard(cardID, actorID int64) (*models.Card, error) {
	return s.updateCardStatus(cardID, models.CardStatusActive, actorID)
}

// updateCardStatus is an unconditional two-state set; there is no transition
// guard, so blocking an already-blocked card succeeds silently.
func (s *Service) updateCardStatus(cardID int64, status models.CardStatus, actorID int64) (*models.Card, error) {
	card, err := s.repo.FindCardByID(cardID)
	if err != nil {
		return nil, err
	}

	ok, err := s.canAccess(actorID, card.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.AccessDenied("access denied")
	}

	card.Status = status
	if err := s.repo.UpdateCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

// RequestCardBlock lets only the card owner, not an admin, block a card.
// The status is always set to BLOCKED regardless of the current state.
func (s *Service) RequestCardBlock(cardID, actorID int64) (*models.Card, error) {
	card, err := s.GetCardByID(cardID, actorID)
	if err != nil {
		return nil, err
	}

	if card.OwnerID != actorID {
		return nil, apperr.AccessDenied("only card owner can request block")
	}

	card.Status = models.CardStatusBlocked
	if err := s.repo.UpdateCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteCard removes a card. Owner or admin; refused while the balance is not zero.
func (s *Service) DeleteCard(cardID, actorID int64) error {
	card, err := s.repo.FindCardByID(cardID)
	if err != nil {
		return err
	}

	ok, err := s.canAccess(actorID, card.OwnerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.AccessDenied("access denied")
	}

	if !card.Balance.IsZero() {
		return apperr.BusinessRule("cannot delete card with non-zero balance")
	}

	return s.repo.DeleteCard(cardID)
}

// GetCardBalance returns the balance of a card visible to its owner or an admin
func (s *Service) GetCardBalance(cardID, actorID int64) (decimal.Decimal, error) {
	card, err := s.GetCardByID(cardID, actorID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

// GetUserTotalBalance returns the sum of balances across all of the user's cards
func (s *Service) GetUserTotalBalance(userID int64) (decimal.Decimal, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return decimal.Zero, err
	}
	return s.repo.SumBalancesByOwner(userID)
}

// GetUserActiveCards returns all of the user's ACTIVE cards
func (s *Service) GetUserActiveCards(userID int64) ([]*models.Card, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return nil, err
	}
	return s.repo.FindCardsByOwnerAndStatus(userID, models.CardStatusActive)
}

// GetUserBlockedCards returns all of the user's BLOCKED cards
func (s *Service) GetUserBlockedCards(userID int64) ([]*models.Card, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return nil, err
	}
	return s.repo.FindCardsByOwnerAndStatus(userID, models.CardStatusBlocked)
}

// BlockExpiredCards blocks every active card whose expiry month has passed.
// Invoked by the nightly cron job.
func (s *Service) BlockExpiredCards() error {
	before := time.Now().Format("2006-01")
	blocked, err := s.repo.BlockExpiredCards(before)
	if err != nil {
		return err
	}
	if blocked > 0 {
		s.log.Infof("Blocked %d expired cards", blocked)
	}
	return nil
}
