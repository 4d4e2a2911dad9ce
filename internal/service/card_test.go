package service_test

import (
	"testing"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateCard(t *testing.T) {
	t.Run("admin registers a card", func(t *testing.T) {
		svc, repo := newTestService(t)
		admin := seedUser(t, repo, "admin", models.RoleAdmin)
		owner := seedUser(t, repo, "alice")

		card, err := svc.CreateCard(models.CreateCardRequest{
			CardNumber: "4000000000000001",
			CardHolder: "Alice Smith",
			Expiry:     "2030-12",
			UserID:     owner.ID,
		}, admin.ID)
		require.NoError(t, err)
		require.NotZero(t, card.ID)
		require.Equal(t, "**** **** **** 0001", card.MaskedNumber)
		require.Equal(t, models.CardStatusActive, card.Status)
		require.Equal(t, owner.ID, card.OwnerID)
		requireAmount(t, "0", card.Balance)
		require.NotEqual(t, "4000000000000001", card.Number)
		require.NotEmpty(t, card.NumberHash)
	})

	t.Run("regular user is refused", func(t *testing.T) {
		svc, repo := newTestService(t)
		user := seedUser(t, repo, "alice")

		_, err := svc.CreateCard(models.CreateCardRequest{
			CardNumber: "4000000000000001",
			CardHolder: "Alice Smith",
			Expiry:     "2030-12",
			UserID:     user.ID,
		}, user.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})

	t.Run("duplicate number is refused", func(t *testing.T) {
		svc, repo := newTestService(t)
		admin := seedUser(t, repo, "admin", models.RoleAdmin)
		owner := seedUser(t, repo, "alice")

		req := models.CreateCardRequest{
			CardNumber: "4000000000000001",
			CardHolder: "Alice Smith",
			Expiry:     "2030-12",
			UserID:     owner.ID,
		}
		_, err := svc.CreateCard(req, admin.ID)
		require.NoError(t, err)

		_, err = svc.CreateCard(req, admin.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "card with this number already exists")
	})

	t.Run("invalid inputs are refused", func(t *testing.T) {
		svc, repo := newTestService(t)
		admin := seedUser(t, repo, "admin", models.RoleAdmin)
		owner := seedUser(t, repo, "alice")

		cases := []struct {
			name string
			req  models.CreateCardRequest
		}{
			{"short number", models.CreateCardRequest{CardNumber: "1234", CardHolder: "Alice Smith", Expiry: "2030-12", UserID: owner.ID}},
			{"non-digit number", models.CreateCardRequest{CardNumber: "4000-0000-0000-0001", CardHolder: "Alice Smith", Expiry: "2030-12", UserID: owner.ID}},
			{"short holder", models.CreateCardRequest{CardNumber: "4000000000000001", CardHolder: "A", Expiry: "2030-12", UserID: owner.ID}},
			{"bad expiry", models.CreateCardRequest{CardNumber: "4000000000000001", CardHolder: "Alice Smith", Expiry: "12/2030", UserID: owner.ID}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.CreateCard(tc.req, admin.ID)
				require.ErrorIs(t, err, apperr.ErrValidation)
			})
		}
	})

	t.Run("unknown owner is not found", func(t *testing.T) {
		svc, repo := newTestService(t)
		admin := seedUser(t, repo, "admin", models.RoleAdmin)

		_, err := svc.CreateCard(models.CreateCardRequest{
			CardNumber: "4000000000000001",
			CardHolder: "Alice Smith",
			Expiry:     "2030-12",
			UserID:     9999,
		}, admin.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGetCardByID(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	admin := seedUser(t, repo, "admin", models.RoleAdmin)
	stranger := seedUser(t, repo, "mallory")
	card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

	t.Run("owner sees the card", func(t *testing.T) {
		got, err := svc.GetCardByID(card.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, card.ID, got.ID)
	})

	t.Run("admin sees the card", func(t *testing.T) {
		got, err := svc.GetCardByID(card.ID, admin.ID)
		require.NoError(t, err)
		require.Equal(t, card.ID, got.ID)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		_, err := svc.GetCardByID(card.ID, stranger.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})

	t.Run("unknown card is not found", func(t *testing.T) {
		_, err := svc.GetCardByID(9999, alice.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestUpdateCard(t *testing.T) {
	t.Run("only provided fields change", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

		holder := "Alice B Smith"
		updated, err := svc.UpdateCard(card.ID, models.UpdateCardRequest{CardHolder: &holder}, alice.ID)
		require.NoError(t, err)
		require.Equal(t, holder, updated.CardHolder)
		require.Equal(t, card.Expiry, updated.Expiry)
		require.Equal(t, card.Status, updated.Status)
		requireAmount(t, "100", updated.Balance)
	})

	t.Run("rejects bad status value", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

		bad := models.CardStatus("FROZEN")
		_, err := svc.UpdateCard(card.ID, models.UpdateCardRequest{Status: &bad}, alice.ID)
		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		stranger := seedUser(t, repo, "mallory")
		card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

		holder := "Mallory"
		_, err := svc.UpdateCard(card.ID, models.UpdateCardRequest{CardHolder: &holder}, stranger.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})
}

func TestBlockAndActivateCard(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

	blocked, err := svc.BlockCard(card.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.CardStatusBlocked, blocked.Status)

	// Blocking again is a no-op, not an error
	blocked, err = svc.BlockCard(card.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.CardStatusBlocked, blocked.Status)

	active, err := svc.ActivateCard(card.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.CardStatusActive, active.Status)
}

func TestRequestCardBlock(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	admin := seedUser(t, repo, "admin", models.RoleAdmin)
	card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

	t.Run("admin cannot request a block on another user's card", func(t *testing.T) {
		_, err := svc.RequestCardBlock(card.ID, admin.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
		require.EqualError(t, err, "only card owner can request block")
	})

	t.Run("owner blocks the card", func(t *testing.T) {
		got, err := svc.RequestCardBlock(card.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, models.CardStatusBlocked, got.Status)
	})

	t.Run("blocking an already blocked card succeeds", func(t *testing.T) {
		got, err := svc.RequestCardBlock(card.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, models.CardStatusBlocked, got.Status)
	})
}

func TestDeleteCard(t *testing.T) {
	t.Run("refused while balance is non-zero", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		card := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)

		err := svc.DeleteCard(card.ID, alice.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "cannot delete card with non-zero balance")
	})

	t.Run("refused while the ledger references the card", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		from := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)
		to := seedCard(t, repo, alice, "4000000000000002", "0", models.CardStatusActive)

		// Drain the source card so only its transfer history remains
		_, err := svc.TransferBetweenUserCards(from.ID, to.ID, decimal.NewFromInt(100), "", alice.ID)
		require.NoError(t, err)

		err = svc.DeleteCard(from.ID, alice.ID)
		require.ErrorIs(t, err, apperr.ErrBusinessRule)
		require.EqualError(t, err, "cannot delete card with transfer history")
	})

	t.Run("zero balance card is removed", func(t *testing.T) {
		svc, repo := newTestService(t)
		alice := seedUser(t, repo, "alice")
		card := seedCard(t, repo, alice, "4000000000000001", "0", models.CardStatusActive)

		require.NoError(t, svc.DeleteCard(card.ID, alice.ID))

		_, err := repo.FindCardByID(card.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCardListings(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")
	seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)
	seedCard(t, repo, alice, "4000000000000002", "50", models.CardStatusBlocked)
	seedCard(t, repo, bob, "4000000000000003", "10", models.CardStatusActive)

	t.Run("user cards are paged", func(t *testing.T) {
		page, err := svc.GetUserCards(alice.ID, models.PageRequest{Page: 0, Size: 1})
		require.NoError(t, err)
		require.EqualValues(t, 2, page.TotalElements)
		require.EqualValues(t, 2, page.TotalPages)
		require.Len(t, page.Content.([]*models.Card), 1)
	})

	t.Run("active and blocked filters", func(t *testing.T) {
		active, err := svc.GetUserActiveCards(alice.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		require.Equal(t, models.CardStatusActive, active[0].Status)

		blocked, err := svc.GetUserBlockedCards(alice.ID)
		require.NoError(t, err)
		require.Len(t, blocked, 1)
		require.Equal(t, models.CardStatusBlocked, blocked[0].Status)
	})

	t.Run("total balance sums all cards", func(t *testing.T) {
		total, err := svc.GetUserTotalBalance(alice.ID)
		require.NoError(t, err)
		requireAmount(t, "150", total)
	})

	t.Run("all cards requires admin", func(t *testing.T) {
		_, err := svc.GetAllCards(models.PageRequest{Size: 10}, alice.ID)
		require.ErrorIs(t, err, apperr.ErrAccessDenied)
	})
}

func TestBlockExpiredCards(t *testing.T) {
	svc, repo := newTestService(t)
	alice := seedUser(t, repo, "alice")
	expired := seedCard(t, repo, alice, "4000000000000001", "100", models.CardStatusActive)
	current := seedCard(t, repo, alice, "4000000000000002", "100", models.CardStatusActive)

	stale, err := repo.FindCardByID(expired.ID)
	require.NoError(t, err)
	stale.Expiry = "2020-01"
	require.NoError(t, repo.UpdateCard(stale))

	require.NoError(t, svc.BlockExpiredCards())

	got, err := repo.FindCardByID(expired.ID)
	require.NoError(t, err)
	require.Equal(t, models.CardStatusBlocked, got.Status)

	got, err = repo.FindCardByID(current.ID)
	require.NoError(t, err)
	require.Equal(t, models.CardStatusActive, got.Status)
}
