package service

import (
	"github.com/fedinairn08/bank-rest/internal/config"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Repository is the persistence surface the service depends on. It is
// implemented by repository.Repository (Postgres) and repository.Memory (tests).
type Repository interface {
	CreateUser(user *models.User) error
	FindUserByID(id int64) (*models.User, error)
	FindUserByUsername(username string) (*models.User, error)
	ExistsUserByUsername(username string) (bool, error)
	UpdateUser(user *models.User) error
	DeleteUser(id int64) error
	FindAllUsers(page models.PageRequest) ([]*models.User, int64, error)
	FindUsersByRole(role string) ([]*models.User, error)
	HasCardsWithBalance(userID int64) (bool, error)

	CreateCard(card *models.Card) error
	FindCardByID(id int64) (*models.Card, error)
	FindCardByIDAndOwner(id, ownerID int64) (*models.Card, error)
	FindCardsByOwner(ownerID int64, page models.PageRequest) ([]*models.Card, int64, error)
	FindCardsByOwnerAndStatus(ownerID int64, status models.CardStatus) ([]*models.Card, error)
	FindAllCards(page models.PageRequest) ([]*models.Card, int64, error)
	ExistsCardByNumberHash(hash string) (bool, error)
	UpdateCard(card *models.Card) error
	DeleteCard(id int64) error
	SumBalancesByOwner(ownerID int64) (decimal.Decimal, error)
	BlockExpiredCards(before string) (int64, error)

	ExecuteTransfer(fromCardID, toCardID int64, amount decimal.Decimal, description string) (*models.Transfer, error)
	FindTransferByID(id int64) (*models.Transfer, error)
	FindTransfersByUser(userID int64, page models.PageRequest) ([]*models.Transfer, int64, error)
	FindAllTransfers(page models.PageRequest) ([]*models.Transfer, int64, error)
}

// Notifier delivers best-effort transfer notifications. May be nil.
type Notifier interface {
	SendTransferNotification(to, username string, transfer *models.Transfer) error
}

// Service handles business logic
type Service struct {
	repo     Repository
	log      *logrus.Logger
	config   *config.Config
	notifier Notifier
}

// NewService initializes a new service. notifier may be nil.
func NewService(repo Repository, log *logrus.Logger, cfg *config.Config, notifier Notifier) *Service {
	return &Service{repo: repo, log: log, config: cfg, notifier: notifier}
}

// IsAdmin reports whether the user carries the ADMIN role. An unknown user id
// is a ResourceNotFound error, not "not admin"; callers handle both outcomes.
func (s *Service) IsAdmin(userID int64) (bool, error) {
	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return false, err
	}
	return user.HasRole(models.RoleAdmin), nil
}

// canAccess implements the owner-or-admin rule used throughout the service.
func (s *Service) canAccess(actorID, resourceOwnerID int64) (bool, error) {
	if actorID == resourceOwnerID {
		return true, nil
	}
	return s.IsAdmin(actorID)
}
