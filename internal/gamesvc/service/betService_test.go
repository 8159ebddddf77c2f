package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPlaceBetDebitsAndRecordsPendingBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 500)

	receipt, err := f.betService().PlaceBet(ctx, service.PlaceBetInput{
		UserID:         user.ID.Hex(),
		SlotNumber:     1,
		SelectedNumber: 7,
		BetAmount:      100,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 400, receipt.UpdatedBalance)
	assert.EqualValues(t, 400, f.balance(t, user))

	bet := receipt.Bet
	assert.Equal(t, models.BetPending, bet.Status)
	assert.Equal(t, game.ID, bet.GameRef)
	assert.Equal(t, "GAME01032024", bet.GameID)
	assert.Equal(t, user.Username, bet.Username)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, f.clock.Location), bet.SlotTime)

	stored, ok := f.bets.Get(bet.ID)
	require.True(t, ok)
	assert.Equal(t, 7, stored.SelectedNumber)
}

func TestPlaceBetSlotTimeRollsToNextDay(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 500)
	f.now = time.Date(2024, 3, 1, 14, 0, 0, 0, f.clock.Location)

	receipt, err := f.betService().PlaceBet(context.Background(), service.PlaceBetInput{
		UserID: user.ID.Hex(), SlotNumber: 3, SelectedNumber: 1, BetAmount: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 14, 0, 0, 0, f.clock.Location), receipt.Bet.SlotTime)
}

func TestPlaceBetRejectionsLeaveBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 500)

	cases := []struct {
		name string
		in   service.PlaceBetInput
		kind apperr.Kind
		msg  string
	}{
		{"below minimum", service.PlaceBetInput{UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 19}, apperr.Validation, ""},
		{"above maximum", service.PlaceBetInput{UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 100001}, apperr.Validation, ""},
		{"over balance", service.PlaceBetInput{UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 501}, apperr.Conflict, "Insufficient balance"},
		{"unknown user", service.PlaceBetInput{UserID: primitive.NewObjectID().Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 50}, apperr.NotFound, "User not found"},
		{"bad slot", service.PlaceBetInput{UserID: user.ID.Hex(), SlotNumber: 6, SelectedNumber: 1, BetAmount: 50}, apperr.Validation, ""},
		{"bad number", service.PlaceBetInput{UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 11, BetAmount: 50}, apperr.Validation, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.betService().PlaceBet(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			if tc.msg != "" {
				assert.Equal(t, tc.msg, apperr.Message(err))
			}
			assert.EqualValues(t, 500, f.balance(t, user))
		})
	}

	bets, err := f.betService().ListBets(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, bets)
}

func TestPlaceBetWithoutGame(t *testing.T) {
	f := newFixture(t)
	user := f.users.Add("+919800000001", 500)

	_, err := f.betService().PlaceBet(context.Background(), service.PlaceBetInput{
		UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 50,
	})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "No game found", apperr.Message(err))
	assert.EqualValues(t, 500, f.balance(t, user))
}

func TestPlaceBetRefundsWhenInsertFailsWithoutTransactions(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 500)
	f.tx.NonAtomic = true
	f.bets.FailCreate = errors.New("write concern timeout")

	_, err := f.betService().PlaceBet(context.Background(), service.PlaceBetInput{
		UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 1, BetAmount: 100,
	})
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	assert.EqualValues(t, 500, f.balance(t, user))
}

func TestConcurrentBetsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 100)
	svc := f.betService()

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceBet(context.Background(), service.PlaceBetInput{
				UserID: user.ID.Hex(), SlotNumber: 2, SelectedNumber: 4, BetAmount: 30,
			})
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.EqualValues(t, 10, f.balance(t, user))
}

func TestListBetsFiltersByUser(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "GAME01032024")
	a := f.users.Add("+919800000001", 500)
	b := f.users.Add("+919800000002", 500)
	svc := f.betService()
	ctx := context.Background()

	for _, u := range []*models.User{a, a, b} {
		_, err := svc.PlaceBet(ctx, service.PlaceBetInput{UserID: u.ID.Hex(), SlotNumber: 1, SelectedNumber: 2, BetAmount: 20})
		require.NoError(t, err)
	}

	all, err := svc.ListBets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListBets(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestPlaceBetOnDrawnSlotIsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 500)

	f.now = time.Date(2024, 3, 1, 13, 0, 0, 0, f.clock.Location)
	_, err := f.gameService().RecordWinningNumber(ctx, "GAME01032024", 1, 7)
	require.NoError(t, err)

	f.advance(30 * time.Minute)
	_, err = f.betService().PlaceBet(ctx, service.PlaceBetInput{
		UserID: user.ID.Hex(), SlotNumber: 1, SelectedNumber: 7, BetAmount: 100,
	})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, "Betting for this slot is closed", apperr.Message(err))
	assert.EqualValues(t, 500, f.balance(t, user))

	all, err := f.bets.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	// the other slots stay open
	_, err = f.betService().PlaceBet(ctx, service.PlaceBetInput{
		UserID: user.ID.Hex(), SlotNumber: 2, SelectedNumber: 7, BetAmount: 100,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 400, f.balance(t, user))
}
