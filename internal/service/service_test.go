package service_test

import (
	"io"
	"testing"

	"github.com/fedinairn08/bank-rest/internal/config"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/fedinairn08/bank-rest/internal/repository"
	"github.com/fedinairn08/bank-rest/internal/service"
	"github.com/fedinairn08/bank-rest/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testHMACSecret = "test-hmac-secret"

func newTestService(t *testing.T) (*service.Service, *repository.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		HMACSecret:        testHMACSecret,
		EncryptionKey:     "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		MaxTransferAmount: decimal.NewFromInt(1_000_000),
	}
	repo := repository.NewMemory()
	return service.NewService(repo, log, cfg, nil), repo
}

func seedUser(t *testing.T, repo *repository.Memory, username string, roles ...string) *models.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	user := &models.User{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Roles:        roles,
	}
	require.NoError(t, repo.CreateUser(user))
	return user
}

func seedCard(t *testing.T, repo *repository.Memory, owner *models.User, number, balance string, status models.CardStatus) *models.Card {
	t.Helper()
	amount, err := decimal.NewFromString(balance)
	require.NoError(t, err)
	card := &models.Card{
		Number:       "encrypted:" + number,
		NumberHash:   utils.Fingerprint(number, testHMACSecret),
		MaskedNumber: utils.MaskCardNumber(number),
		CardHolder:   owner.Username,
		Expiry:       "2030-12",
		Status:       status,
		Balance:      amount,
		OwnerID:      owner.ID,
	}
	require.NoError(t, repo.CreateCard(card))
	return card
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	expected, err := decimal.NewFromString(want)
	require.NoError(t, err)
	require.True(t, expected.Equal(got), "amount = %s, want %s", got, expected)
}
