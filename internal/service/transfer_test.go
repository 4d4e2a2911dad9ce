package service_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransferBetweenUserCards(t *testing.T) {
	t.Run("moves funds between own cards", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		transfer, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(100), "groceries", user.ID)
		require.NoError(t, err)
		require.NotZero(t, transfer.ID)
		require.Equal(t, from.ID, transfer.FromCardID)
		require.Equal(t, to.ID, transfer.ToCardID)
		requireAmount(t, "100", transfer.Amount)
		require.Equal(t, "groceries", transfer.Description)
		require.False(t, transfer.TransferDate.IsZero())

		fromAfter, err := repo.FindCardByID(from.ID)
		require.NoError(t, err)
		toAfter, err := repo.FindCardByID(to.ID)
		require.NoError(t, err)
		requireAmount(t, "900", fromAfter.Balance)
		requireAmount(t, "600", toAfter.Balance)
	})

	t.Run("each identical request applies again", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "0", models.CardStatusActive)

		for i := 0; i < 2; i++ {
			_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(100), "", user.ID)
			require.NoError(t, err)
		}

		fromAfter, err := repo.FindCardByID(from.ID)
		require.NoError(t, err)
		toAfter, err := repo.FindCardByID(to.ID)
		require.NoError(t, err)
		requireAmount(t, "800", fromAfter.Balance)
		requireAmount(t, "200", toAfter.Balance)
	})

	t.Run("conserves total balance across many transfers", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		a := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		b := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		amounts := []string{"10.50", "200", "0.01", "333.33"}
		for _, raw := range amounts {
			amount, err := decimal.NewFromString(raw)
			require.NoError(t, err)
			_, err = svc.TransferBetweenUserCards(a.ID, b.ID, amount, "", user.ID)
			require.NoError(t, err)
		}

		total, err := repo.SumBalancesByOwner(user.ID)
		require.NoError(t, err)
		requireAmount(t, "1500", total)
	})

	t.Run("rejects foreign source card", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		bob := seedUser(t, repo, "bob")
		foreign := seedCard(t, repo, bob, "4000000000000001", "1000", models.CardStatusActive)
		own := seedCard(t, repo, alice, "4000000000000002", "500", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(foreign.ID, own.ID, decimal.NewFromInt(10), "", alice.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
		require.EqualError(t, err, "source card not found or access denied")
	})

	t.Run("rejects foreign target card", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		bob := seedUser(t, repo, "bob")
		own := seedCard(t, repo, alice, "4000000000000001", "1000", models.CardStatusActive)
		foreign := seedCard(t, repo, bob, "4000000000000002", "500", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(own.ID, foreign.ID, decimal.NewFromInt(10), "", alice.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
		require.EqualError(t, err, "target card not found or access denied")
	})

	t.Run("rejects missing source card", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		own := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(9999, own.ID, decimal.NewFromInt(10), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})

	t.Run("rejects blocked source card", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusBlocked)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(10), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "source card is not active")
	})

	t.Run("rejects blocked target card", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusBlocked)

		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(10), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "target card is not active")
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
			_, err := svc.TransferBetweenUserCards(from.ID, to.ID, amount, "", user.ID)
			require.ErrorIs(t, err, apperr.ErrValidation)
			require.EqualError(t, err, "transfer amount must be positive")
		}
	})

	t.Run("rejects more than two decimal places", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		amount, err := decimal.NewFromString("10.005")
		require.NoError(t, err)
		_, err = svc.TransferBetweenUserCards(from.ID, to.ID, amount, "", user.ID)
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "transfer amount must have at most 2 decimal places")
	})

	t.Run("rejects amount above the configured ceiling", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "2000000", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "0", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(1_000_001), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "transfer amount exceeds maximum limit")
	})

	t.Run("rejects insufficient funds and mutates nothing", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "50", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "500", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(100), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "insufficient funds on source card")

		fromAfter, err := repo.FindCardByID(from.ID)
		require.NoError(t, err)
		toAfter, err := repo.FindCardByID(to.ID)
		require.NoError(t, err)
		requireAmount(t, "50", fromAfter.Balance)
		requireAmount(t, "500", toAfter.Balance)

		transfers, _, err := repo.FindTransfersByUser(user.ID, models.PageRequest{Size: 10})
		require.NoError(t, err)
		require.Empty(t, transfers)
	})

	t.Run("rejects transfer to the same card", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		card := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)

		_, err := svc.TransferBetweenUserCards(card.ID, card.ID, decimal.NewFromInt(10), "", user.ID)
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.EqualError(t, err, "cannot transfer to the same card")

		after, err := repo.FindCardByID(card.ID)
		require.NoError(t, err)
		requireAmount(t, "1000", after.Balance)
	})

	t.Run("exact balance drains the card to zero", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")
		from := seedCard(t, repo, user, "4000000000000001", "250.75", models.CardStatusActive)
		to := seedCard(t, repo, user, "4000000000000002", "0", models.CardStatusActive)

		amount, err := decimal.NewFromString("250.75")
		require.NoError(t, err)
		_, err = svc.TransferBetweenUserCards(from.ID, to.ID, amount, "", user.ID)
		require.NoError(t, err)

		fromAfter, err := repo.FindCardByID(from.ID)
		require.NoError(t, err)
		requireAmount(t, "0", fromAfter.Balance)
	})
}

func TestConcurrentTransfersSerialize(t *testing.T) {
	svc, repo := newTestService(t)
	user := seedUser(t, repo, "alice")
	a := seedCard(t, repo, user, "4000000000000001", "1000", models.CardStatusActive)
	b := seedCard(t, repo, user, "4000000000000002", "1000", models.CardStatusActive)

	const workers = 8
	const transfersPerWorker = 20

	errs := make(chan error, workers*transfersPerWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 0 {
				from, to = to, from
			}
			for j := 0; j < transfersPerWorker; j++ {
				if _, err := svc.TransferBetweenUserCards(from, to, decimal.NewFromInt(75), "", user.ID); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	// Under contention a transfer may lose the race for funds, but nothing else
	for err := range errs {
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "insufficient funds on source card")
	}

	total, err := repo.SumBalancesByOwner(user.ID)
	require.NoError(t, err)
	requireAmount(t, "2000", total)

	for _, id := range []int64{a.ID, b.ID} {
		card, err := repo.FindCardByID(id)
		require.NoError(t, err)
		require.False(t, card.Balance.IsNegative(), "card %d went negative: %s", id, card.Balance)
	}
}

func TestGetTransferByID(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	admin := seedUser(t, repo, "admin", models.RoleAdmin)
	stranger := seedUser(t, repo, "mallory")
	from := seedCard(t, repo, alice, "4000000000000001", "1000", models.CardStatusActive)
	to := seedCard(t, repo, alice, "4000000000000002", "0", models.CardStatusActive)

	created, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(25), "", alice.ID)
	require.NoError(t, err)

	t.Run("visible to the involved owner", func(t *testing.T) {
		transfer, err := svc.GetTransferByID(created.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, transfer.ID)
	})

	t.Run("visible to an admin", func(t *testing.T) {
		transfer, err := svc.GetTransferByID(created.ID, admin.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, transfer.ID)
	})

	t.Run("hidden from everyone else", func(t *testing.T) {
		_, err := svc.GetTransferByID(created.ID, stranger.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.GetTransferByID(9999, alice.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGetUserTransfers(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	from := seedCard(t, repo, alice, "4000000000000001", "1000", models.CardStatusActive)
	to := seedCard(t, repo, alice, "4000000000000002", "0", models.CardStatusActive)

	for i := 1; i <= 3; i++ {
		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(int64(i)), fmt.Sprintf("transfer %d", i), alice.ID)
		require.NoError(t, err)
	}

	page, err := svc.GetUserTransfers(alice.ID, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.TotalElements)

	transfers := page.Content.([]*models.Transfer)
	require.Len(t, transfers, 3)
	// Newest first
	requireAmount(t, "3", transfers[0].Amount)
	requireAmount(t, "1", transfers[2].Amount)
}

func TestGetAllTransfers(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	admin := seedUser(t, repo, "admin", models.RoleAdmin)
	from := seedCard(t, repo, alice, "4000000000000001", "1000", models.CardStatusActive)
	to := seedCard(t, repo, alice, "4000000000000002", "0", models.CardStatusActive)

	_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(5), "", alice.ID)
	require.NoError(t, err)

	t.Run("admin sees the full ledger", func(t *testing.T) {
		page, err := svc.GetAllTransfers(models.PageRequest{Size: 10}, admin.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, page.TotalElements)
	})

	t.Run("regular user is refused", func(t *testing.T) {
		_, err := svc.GetAllTransfers(models.PageRequest{Size: 10}, alice.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})
}
