package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDB returns a scratch database on the server named by MONGODB_URI, dropped
// when the test ends.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx := context.Background()
	conn, err := db.ConnectToDB(ctx, uri)
	require.NoError(t, err)

	database := conn.Client().Database("numbet_test_" + primitive.NewObjectID().Hex())
	require.NoError(t, db.EnsureIndexes(ctx, database))

	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		db.Disconnect(database)
	})
	return database
}

func newUser(t *testing.T, users *UserStore, phone string, balance int64) *models.User {
	t.Helper()
	u := &models.User{
		Username:  "user" + phone,
		Email:     phone + "@example.com",
		Phone:     phone,
		Balance:   balance,
		CreatedAt: time.Now(),
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestUserStoreDebit(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(testDB(t))
	u := newUser(t, users, "9800000001", 500)

	got, err := users.Debit(ctx, u.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Balance)

	_, err = users.Debit(ctx, u.ID, 301)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = users.Debit(ctx, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), stored.Balance)
}

func TestUserStoreRejectsDuplicatePhone(t *testing.T) {
	users := NewUserStore(testDB(t))
	newUser(t, users, "9800000002", 0)

	err := users.Create(context.Background(), &models.User{
		Username: "other",
		Email:    "other@example.com",
		Phone:    "9800000002",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserStoreApplySettlement(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(testDB(t))
	u := newUser(t, users, "9800000003", 100)

	_, err := users.ApplySettlement(ctx, u.ID, 900, true)
	require.NoError(t, err)
	got, err := users.ApplySettlement(ctx, u.ID, 0, false)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), got.Balance)
	assert.Equal(t, int64(2), got.TotalBets)
	assert.Equal(t, int64(1), got.TotalWins)
}

func TestGameStoreSetWinningNumberOnce(t *testing.T) {
	ctx := context.Background()
	games := NewGameStore(testDB(t))
	drawnAt := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	require.NoError(t, games.Create(ctx, models.NewGame("GAME01032024", drawnAt.Add(-5*time.Hour))))

	g, err := games.SetWinningNumber(ctx, "GAME01032024", 2, 7, "9", drawnAt)
	require.NoError(t, err)

	n, ok := g.SlotNumber(2)
	require.True(t, ok)
	assert.Equal(t, 7, n)
	assert.Equal(t, "9", g.SlotMultiplier(2))
	at, ok := g.SlotDrawnAt(2)
	require.True(t, ok)
	assert.WithinDuration(t, drawnAt, at, time.Millisecond)
	_, ok = g.SlotNumber(1)
	assert.False(t, ok)

	_, err = games.SetWinningNumber(ctx, "GAME01032024", 2, 3, "9", drawnAt)
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = games.SetWinningNumber(ctx, "GAME02032024", 1, 3, "9", drawnAt)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := games.GetByGameID(ctx, "GAME01032024")
	require.NoError(t, err)
	n, _ = stored.SlotNumber(2)
	assert.Equal(t, 7, n)
}

func TestGameStoreSetMultiplierKeepsFirstValue(t *testing.T) {
	ctx := context.Background()
	games := NewGameStore(testDB(t))
	require.NoError(t, games.Create(ctx, models.NewGame("GAME01032024", time.Now())))

	g, err := games.SetMultiplier(ctx, "GAME01032024", 3, "9")
	require.NoError(t, err)
	assert.Equal(t, "9", g.SlotMultiplier(3))

	g, err = games.SetMultiplier(ctx, "GAME01032024", 3, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "9", g.SlotMultiplier(3))
}

func TestGameStoreLatest(t *testing.T) {
	ctx := context.Background()
	games := NewGameStore(testDB(t))

	_, err := games.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, games.Create(ctx, models.NewGame("GAME01032024", day)))
	require.NoError(t, games.Create(ctx, models.NewGame("GAME02032024", day.AddDate(0, 0, 1))))

	g, err := games.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GAME02032024", g.GameID)

	err = games.Create(ctx, models.NewGame("GAME02032024", day))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBetStoreSettleAndCredit(t *testing.T) {
	ctx := context.Background()
	database := testDB(t)
	bets := NewBetStore(database)
	now := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)

	userID := primitive.NewObjectID()
	winner := &models.Bet{UserID: userID, GameID: "GAME01032024", SlotNumber: 1, SelectedNumber: 4, BetAmount: 100, Status: models.BetPending, CreatedAt: now}
	loser := &models.Bet{UserID: userID, GameID: "GAME01032024", SlotNumber: 1, SelectedNumber: 5, BetAmount: 100, Status: models.BetPending, CreatedAt: now}
	other := &models.Bet{UserID: userID, GameID: "GAME01032024", SlotNumber: 2, SelectedNumber: 4, BetAmount: 100, Status: models.BetPending, CreatedAt: now}
	for _, b := range []*models.Bet{winner, loser, other} {
		require.NoError(t, bets.Create(ctx, b))
	}

	pending, err := bets.ListPending(ctx, "GAME01032024", 1)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, bets.Settle(ctx, winner.ID, models.BetWon, 4, 900, now))
	require.NoError(t, bets.Settle(ctx, loser.ID, models.BetLost, 4, 0, now))
	assert.ErrorIs(t, bets.Settle(ctx, winner.ID, models.BetLost, 4, 0, now), ErrNotPending)

	pending, err = bets.ListPending(ctx, "GAME01032024", 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	uncredited, err := bets.ListUncredited(ctx, "GAME01032024", 1, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, uncredited, "bets settled after the cutoff are left alone")

	uncredited, err = bets.ListUncredited(ctx, "GAME01032024", 1, now)
	require.NoError(t, err)
	assert.Len(t, uncredited, 2)

	require.NoError(t, bets.MarkCredited(ctx, winner.ID))
	assert.ErrorIs(t, bets.MarkCredited(ctx, winner.ID), ErrAlreadyCredited)
	assert.ErrorIs(t, bets.MarkCredited(ctx, other.ID), ErrAlreadyCredited, "pending bets cannot be credited")

	uncredited, err = bets.ListUncredited(ctx, "GAME01032024", 1, now)
	require.NoError(t, err)
	require.Len(t, uncredited, 1)
	assert.Equal(t, loser.ID, uncredited[0].ID)

	mine, err := bets.List(ctx, &userID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	for _, b := range mine {
		if b.ID == winner.ID {
			assert.Equal(t, models.BetWon, b.Status)
			assert.Equal(t, int64(900), b.WinAmount)
			assert.True(t, b.Credited)
		}
	}
}

func TestDepositTransitionOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	deposits := NewDepositStore(testDB(t))
	now := time.Now()

	d := &models.Deposit{UserID: primitive.NewObjectID(), DepositAmount: 500, Status: models.FundsPending, CreatedAt: now}
	require.NoError(t, deposits.Create(ctx, d))

	got, err := deposits.Transition(ctx, d.ID, models.FundsApproved, now)
	require.NoError(t, err)
	assert.Equal(t, models.FundsApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)

	_, err = deposits.Transition(ctx, d.ID, models.FundsRejected, now)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = deposits.Transition(ctx, primitive.NewObjectID(), models.FundsApproved, now)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := deposits.ListByStatus(ctx, models.FundsPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithdrawalTransitionOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	withdrawals := NewWithdrawalStore(testDB(t))
	now := time.Now()

	w := &models.Withdrawal{UserID: primitive.NewObjectID(), WithdrawalAmount: 300, Status: models.FundsPending, CreatedAt: now}
	require.NoError(t, withdrawals.Create(ctx, w))

	got, err := withdrawals.Transition(ctx, w.ID, models.FundsRejected, now)
	require.NoError(t, err)
	assert.Equal(t, models.FundsRejected, got.Status)

	_, err = withdrawals.Transition(ctx, w.ID, models.FundsApproved, now)
	assert.ErrorIs(t, err, ErrNotPending)

	mine, err := withdrawals.ListByUser(ctx, w.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestOTPStoreAttempts(t *testing.T) {
	ctx := context.Background()
	otps := NewOTPStore(testDB(t))

	o := &models.OTP{Key: "register:9800000001", Phone: "9800000001", Secret: "SECRET", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, otps.Save(ctx, o))

	n, err := otps.IncrementAttempts(ctx, o.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a fresh code resets the counter
	require.NoError(t, otps.Save(ctx, o))
	got, err := otps.Get(ctx, o.Key)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts)

	require.NoError(t, otps.Delete(ctx, o.Key))
	_, err = otps.Get(ctx, o.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}
