package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is an in-memory store with the same behavior as Repository,
// used by tests so the service layer runs without a database.
type Memory struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	cards      map[int64]*models.Card
	transfers  map[int64]*models.Transfer
	nextUser   int64
	nextCard   int64
	nextTransf int64
}

// NewMemory initializes an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]*models.User),
		cards:      make(map[int64]*models.Card),
		transfers:  make(map[int64]*models.Transfer),
		nextUser:   1,
		nextCard:   1,
		nextTransf: 1,
	}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

func copyCard(c *models.Card) *models.Card {
	cp := *c
	return &cp
}

func copyTransfer(t *models.Transfer) *models.Transfer {
	cp := *t
	return &cp
}

func (m *Memory) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperr.Validation("username already exists: %s", user.Username)
		}
	}
	user.ID = m.nextUser
	m.nextUser++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *Memory) FindUserByID(id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found with id: %d", id)
	}
	return copyUser(u), nil
}

func (m *Memory) FindUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, apperr.NotFound("user not found: %s", username)
}

func (m *Memory) ExistsUserByUsername(username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UpdateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok {
		return apperr.NotFound("user not found with id: %d", user.ID)
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Username == user.Username {
			return apperr.Validation("username already exists: %s", user.Username)
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *Memory) DeleteUser(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user not found with id: %d", id)
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) FindAllUsers(page models.PageRequest) ([]*models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	return pageOf(all, page), total, nil
}

func (m *Memory) FindUsersByRole(role string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0)
	for _, u := range m.users {
		if u.HasRole(role) {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) HasCardsWithBalance(userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.OwnerID == userID && !c.Balance.IsZero() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateCard(card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.NumberHash == card.NumberHash {
			return apperr.BusinessRule("card with this number already exists")
		}
	}
	card.ID = m.nextCard
	m.nextCard++
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	m.cards[card.ID] = copyCard(card)
	return nil
}

func (m *Memory) FindCardByID(id int64) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, apperr.NotFound("card not found with id: %d", id)
	}
	return copyCard(c), nil
}

func (m *Memory) FindCardByIDAndOwner(id, ownerID int64) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperr.NotFound("card not found with id: %d for owner: %d", id, ownerID)
	}
	return copyCard(c), nil
}

func (m *Memory) FindCardsByOwner(ownerID int64, page models.PageRequest) ([]*models.Card, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Card, 0)
	for _, c := range m.cards {
		if c.OwnerID == ownerID {
			all = append(all, copyCard(c))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	return pageOf(all, page), total, nil
}

func (m *Memory) FindCardsByOwnerAndStatus(ownerID int64, status models.CardStatus) ([]*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cards := make([]*models.Card, 0)
	for _, c := range m.cards {
		if c.OwnerID == ownerID && c.Status == status {
			cards = append(cards, copyCard(c))
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (m *Memory) FindAllCards(page models.PageRequest) ([]*models.Card, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Card, 0, len(m.cards))
	for _, c := range m.cards {
		all = append(all, copyCard(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	return pageOf(all, page), total, nil
}

func (m *Memory) ExistsCardByNumberHash(hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.NumberHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UpdateCard(card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.cards[card.ID]
	if !ok {
		return apperr.NotFound("card not found with id: %d", card.ID)
	}
	// Only the transfer path moves money; keep the stored balance.
	existing.CardHolder = card.CardHolder
	existing.Expiry = card.Expiry
	existing.Status = card.Status
	existing.UpdatedAt = time.Now()
	card.Balance = existing.Balance
	card.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *Memory) DeleteCard(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return apperr.NotFound("card not found with id: %d", id)
	}
	// Mirrors the ledger FK constraint of the SQL backend.
	for _, tr := range m.transfers {
		if tr.FromCardID == id || tr.ToCardID == id {
			return apperr.BusinessRule("cannot delete card with transfer history")
		}
	}
	delete(m.cards, id)
	return nil
}

func (m *Memory) SumBalancesByOwner(ownerID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, c := range m.cards {
		if c.OwnerID == ownerID {
			total = total.Add(c.Balance)
		}
	}
	return total, nil
}

func (m *Memory) BlockExpiredCards(before string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var blocked int64
	for _, c := range m.cards {
		if c.Status == models.CardStatusActive && c.Expiry < before {
			c.Status = models.CardStatusBlocked
			c.UpdatedAt = time.Now()
			blocked++
		}
	}
	return blocked, nil
}

// ExecuteTransfer applies debit, credit and the ledger append under one lock,
// re-checking status and funds the way the SQL backend does under row locks.
func (m *Memory) ExecuteTransfer(fromCardID, toCardID int64, amount decimal.Decimal, description string) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.cards[fromCardID]
	if !ok {
		return nil, apperr.NotFound("card not found with id: %d", fromCardID)
	}
	to, ok := m.cards[toCardID]
	if !ok {
		return nil, apperr.NotFound("card not found with id: %d", toCardID)
	}

	if from.Status != models.CardStatusActive {
		return nil, apperr.BusinessRule("source card is not active")
	}
	if to.Status != models.CardStatusActive {
		return nil, apperr.BusinessRule("target card is not active")
	}
	if from.Balance.LessThan(amount) {
		return nil, apperr.BusinessRule("insufficient funds on source card")
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	from.UpdatedAt = time.Now()
	to.UpdatedAt = from.UpdatedAt

	transfer := &models.Transfer{
		ID:           m.nextTransf,
		FromCardID:   fromCardID,
		ToCardID:     toCardID,
		Amount:       amount,
		Description:  description,
		TransferDate: time.Now(),
		FromOwnerID:  from.OwnerID,
		ToOwnerID:    to.OwnerID,
	}
	m.nextTransf++
	m.transfers[transfer.ID] = copyTransfer(transfer)
	return transfer, nil
}

func (m *Memory) FindTransferByID(id int64) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, apperr.NotFound("transfer not found with id: %d", id)
	}
	return copyTransfer(t), nil
}

func (m *Memory) FindTransfersByUser(userID int64, page models.PageRequest) ([]*models.Transfer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Transfer, 0)
	for _, t := range m.transfers {
		if t.FromOwnerID == userID || t.ToOwnerID == userID {
			all = append(all, copyTransfer(t))
		}
	}
	sortTransfersDesc(all)
	total := int64(len(all))
	return pageOf(all, page), total, nil
}

func (m *Memory) FindAllTransfers(page models.PageRequest) ([]*models.Transfer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Transfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		all = append(all, copyTransfer(t))
	}
	sortTransfersDesc(all)
	total := int64(len(all))
	return pageOf(all, page), total, nil
}

func sortTransfersDesc(transfers []*models.Transfer) {
	sort.Slice(transfers, func(i, j int) bool {
		if !transfers[i].TransferDate.Equal(transfers[j].TransferDate) {
			return transfers[i].TransferDate.After(transfers[j].TransferDate)
		}
		return transfers[i].ID > transfers[j].ID
	})
}

func pageOf[T any](all []T, page models.PageRequest) []T {
	start := page.Offset()
	if start >= len(all) {
		return make([]T, 0)
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
