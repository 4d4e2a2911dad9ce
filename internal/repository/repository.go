package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO bank.users (username, email, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, pq.Array(user.Roles)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation("username already exists: %s", user.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, roles, created_at, updated_at
		FROM bank.users
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, pq.Array(&user.Roles), &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, roles, created_at, updated_at
		FROM bank.users
		WHERE username = $1`
	err := r.db.QueryRow(query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, pq.Array(&user.Roles), &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ExistsUserByUsername checks whether a username is already taken
func (r *Repository) ExistsUserByUsername(username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bank.users WHERE username = $1)`
	if err := r.db.QueryRow(query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// UpdateUser persists username, password hash and roles of an existing user
func (r *Repository) UpdateUser(user *models.User) error {
	query := `
		UPDATE bank.users
		SET username = $2, email = $3, password_hash = $4, roles = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(query, user.ID, user.Username, user.Email, user.PasswordHash, pq.Array(user.Roles)).
		Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperr.NotFound("user not found with id: %d", user.ID)
	}
	if isUniqueViolation(err) {
		return apperr.Validation("username already exists: %s", user.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user by id
func (r *Repository) DeleteUser(id int64) error {
	res, err := r.db.Exec(`DELETE FROM bank.users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperr.NotFound("user not found with id: %d", id)
	}
	return nil
}

// FindAllUsers returns a page of users ordered by id
func (r *Repository) FindAllUsers(page models.PageRequest) ([]*models.User, int64, error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bank.users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT id, username, email, password_hash, roles, created_at, updated_at
		FROM bank.users
		ORDER BY id
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, pq.Array(&user.Roles), &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// FindUsersByRole returns all users that carry the given role
func (r *Repository) FindUsersByRole(role string) ([]*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at, updated_at
		FROM bank.users
		WHERE $1 = ANY(roles)
		ORDER BY id`
	rows, err := r.db.Query(query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, pq.Array(&user.Roles), &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// HasCardsWithBalance reports whether any card of the user holds a non-zero balance
func (r *Repository) HasCardsWithBalance(userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bank.cards WHERE owner_id = $1 AND balance <> 0)`
	if err := r.db.QueryRow(query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user cards: %w", err)
	}
	return exists, nil
}

// CreateCard creates a new card in the database
func (r *Repository) CreateCard(card *models.Card) error {
	query := `
		INSERT INTO bank.cards (number, number_hash, masked_number, card_holder, expiry, status, balance, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, card.Number, card.NumberHash, card.MaskedNumber, card.CardHolder,
		card.Expiry, card.Status, card.Balance, card.OwnerID).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.BusinessRule("card with this number already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

const cardColumns = `id, number, number_hash, masked_number, card_holder, expiry, status, balance, owner_id, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.Number, &card.NumberHash, &card.MaskedNumber, &card.CardHolder,
		&card.Expiry, &card.Status, &card.Balance, &card.OwnerID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// FindCardByID retrieves a card by id
func (r *Repository) FindCardByID(id int64) (*models.Card, error) {
	card, err := scanCard(r.db.QueryRow(`SELECT `+cardColumns+` FROM bank.cards WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("card not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardByIDAndOwner retrieves a card only if it belongs to the given owner
func (r *Repository) FindCardByIDAndOwner(id, ownerID int64) (*models.Card, error) {
	card, err := scanCard(r.db.QueryRow(`SELECT `+cardColumns+` FROM bank.cards WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("card not found with id: %d for owner: %d", id, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardsByOwner returns a page of the owner's cards ordered by id
func (r *Repository) FindCardsByOwner(ownerID int64, page models.PageRequest) ([]*models.Card, int64, error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bank.cards WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	rows, err := r.db.Query(`SELECT `+cardColumns+` FROM bank.cards WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		ownerID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	return cards, total, err
}

// FindCardsByOwnerAndStatus returns all of the owner's cards in the given status
func (r *Repository) FindCardsByOwnerAndStatus(ownerID int64, status models.CardStatus) ([]*models.Card, error) {
	rows, err := r.db.Query(`SELECT `+cardColumns+` FROM bank.cards WHERE owner_id = $1 AND status = $2 ORDER BY id`,
		ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

// FindAllCards returns a page of all cards ordered by id
func (r *Repository) FindAllCards(page models.PageRequest) ([]*models.Card, int64, error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bank.cards`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	rows, err := r.db.Query(`SELECT `+cardColumns+` FROM bank.cards ORDER BY id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	return cards, total, err
}

func collectCards(rows *sql.Rows) ([]*models.Card, error) {
	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ExistsCardByNumberHash checks card-number uniqueness via the deterministic fingerprint
func (r *Repository) ExistsCardByNumberHash(hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bank.cards WHERE number_hash = $1)`
	if err := r.db.QueryRow(query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check card number: %w", err)
	}
	return exists, nil
}

// UpdateCard persists holder, expiry and status of an existing card.
// Balance is deliberately not written here; only ExecuteTransfer moves money.
func (r *Repository) UpdateCard(card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET card_holder = $2, expiry = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(query, card.ID, card.CardHolder, card.Expiry, card.Status).Scan(&card.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperr.NotFound("card not found with id: %d", card.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

// DeleteCard removes a card by id. The transfers table keeps plain FKs to
// cards, so a card referenced by the ledger cannot be removed.
func (r *Repository) DeleteCard(id int64) error {
	res, err := r.db.Exec(`DELETE FROM bank.cards WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.BusinessRule("cannot delete card with transfer history")
	}
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperr.NotFound("card not found with id: %d", id)
	}
	return nil
}

// SumBalancesByOwner returns the total balance across all cards of the owner
func (r *Repository) SumBalancesByOwner(ownerID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(balance), 0) FROM bank.cards WHERE owner_id = $1`
	if err := r.db.QueryRow(query, ownerID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}

// BlockExpiredCards blocks every active card whose expiry month is before the
// given YYYY-MM boundary and returns the number of cards affected.
func (r *Repository) BlockExpiredCards(before string) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE bank.cards
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE status = $2 AND expiry < $3`,
		models.CardStatusBlocked, models.CardStatusActive, before)
	if err != nil {
		return 0, fmt.Errorf("failed to block expired cards: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count blocked cards: %w", err)
	}
	return rows, nil
}

// ExecuteTransfer applies debit, credit and the ledger insert as one transaction.
// Both card rows are locked in ascending id order; status and funds are
// re-checked under the lock so concurrent transfers cannot race the balance.
func (r *Repository) ExecuteTransfer(fromCardID, toCardID int64, amount decimal.Decimal, description string) (*models.Transfer, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback()

	firstID, secondID := fromCardID, toCardID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	locked := make(map[int64]struct {
		status  models.CardStatus
		balance decimal.Decimal
		ownerID int64
	}, 2)
	for _, id := range []int64{firstID, secondID} {
		var c struct {
			status  models.CardStatus
			balance decimal.Decimal
			ownerID int64
		}
		err := tx.QueryRow(`SELECT status, balance, owner_id FROM bank.cards WHERE id = $1 FOR UPDATE`, id).
			Scan(&c.status, &c.balance, &c.ownerID)
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("card not found with id: %d", id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock card %d: %w", id, err)
		}
		locked[id] = c
	}

	from, to := locked[fromCardID], locked[toCardID]
	if from.status != models.CardStatusActive {
		return nil, apperr.BusinessRule("source card is not active")
	}
	if to.status != models.CardStatusActive {
		return nil, apperr.BusinessRule("target card is not active")
	}
	if from.balance.LessThan(amount) {
		return nil, apperr.BusinessRule("insufficient funds on source card")
	}

	if _, err := tx.Exec(`UPDATE bank.cards SET balance = balance - $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, fromCardID, amount); err != nil {
		return nil, fmt.Errorf("failed to debit card %d: %w", fromCardID, err)
	}
	if _, err := tx.Exec(`UPDATE bank.cards SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, toCardID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit card %d: %w", toCardID, err)
	}

	transfer := &models.Transfer{
		FromCardID:  fromCardID,
		ToCardID:    toCardID,
		Amount:      amount,
		Description: description,
		FromOwnerID: from.ownerID,
		ToOwnerID:   to.ownerID,
	}
	err = tx.QueryRow(`
		INSERT INTO bank.transfers (from_card_id, to_card_id, amount, description, transfer_date)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, transfer_date`,
		fromCardID, toCardID, amount, description).
		Scan(&transfer.ID, &transfer.TransferDate)
	if err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return transfer, nil
}

const transferColumns = `t.id, t.from_card_id, t.to_card_id, t.amount, t.description, t.transfer_date, f.owner_id, c.owner_id`

const transferJoin = `
	FROM bank.transfers t
	JOIN bank.cards f ON f.id = t.from_card_id
	JOIN bank.cards c ON c.id = t.to_card_id`

func scanTransfer(row interface{ Scan(...any) error }) (*models.Transfer, error) {
	t := &models.Transfer{}
	err := row.Scan(&t.ID, &t.FromCardID, &t.ToCardID, &t.Amount, &t.Description, &t.TransferDate, &t.FromOwnerID, &t.ToOwnerID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindTransferByID retrieves a transfer with the owner ids of both cards
func (r *Repository) FindTransferByID(id int64) (*models.Transfer, error) {
	t, err := scanTransfer(r.db.QueryRow(`SELECT `+transferColumns+transferJoin+` WHERE t.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("transfer not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer: %w", err)
	}
	return t, nil
}

// FindTransfersByUser returns a page of transfers where the user owns either
// side, newest first
func (r *Repository) FindTransfersByUser(userID int64, page models.PageRequest) ([]*models.Transfer, int64, error) {
	var total int64
	err := r.db.QueryRow(`SELECT COUNT(*)`+transferJoin+` WHERE f.owner_id = $1 OR c.owner_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	rows, err := r.db.Query(`SELECT `+transferColumns+transferJoin+`
		WHERE f.owner_id = $1 OR c.owner_id = $1
		ORDER BY t.transfer_date DESC, t.id DESC
		LIMIT $2 OFFSET $3`,
		userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	transfers, err := collectTransfers(rows)
	return transfers, total, err
}

// FindAllTransfers returns a page of all transfers, newest first
func (r *Repository) FindAllTransfers(page models.PageRequest) ([]*models.Transfer, int64, error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bank.transfers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	rows, err := r.db.Query(`SELECT `+transferColumns+transferJoin+`
		ORDER BY t.transfer_date DESC, t.id DESC
		LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	transfers, err := collectTransfers(rows)
	return transfers, total, err
}

func collectTransfers(rows *sql.Rows) ([]*models.Transfer, error) {
	transfers := make([]*models.Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
