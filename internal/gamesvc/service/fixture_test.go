package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/avvvet/numbet-services/internal/gamesvc/service/servicetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users       *servicetest.Users
	games       *servicetest.Games
	bets        *servicetest.Bets
	deposits    *servicetest.Deposits
	withdrawals *servicetest.Withdrawals
	admins      *servicetest.Admins
	otps        *servicetest.OTPs
	tx          *servicetest.Tx
	notifier    *servicetest.Notifier
	sms         *servicetest.SMS

	now   time.Time
	clock *gameday.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	f := &fixture{
		users:       servicetest.NewUsers(),
		games:       servicetest.NewGames(),
		bets:        servicetest.NewBets(),
		deposits:    servicetest.NewDeposits(),
		withdrawals: servicetest.NewWithdrawals(),
		admins:      servicetest.NewAdmins(),
		otps:        servicetest.NewOTPs(),
		tx:          &servicetest.Tx{},
		notifier:    &servicetest.Notifier{},
		sms:         &servicetest.SMS{},
		now:         time.Date(2024, 3, 1, 10, 30, 0, 0, ist),
	}
	f.clock = gameday.NewClock(ist)
	f.clock.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) gameService() *service.GameService {
	return service.NewGameService(f.games, f.notifier, f.clock)
}

func (f *fixture) betService() *service.BetService {
	return service.NewBetService(f.users, f.games, f.bets, f.tx, f.clock, service.BetLimits{Min: 20, Max: 100000})
}

func (f *fixture) settlementService() *service.SettlementService {
	return service.NewSettlementService(f.games, f.bets, f.users, f.tx, f.notifier, f.clock, 4, decimal.NewFromInt(9))
}

func (f *fixture) fundsService() *service.FundsService {
	return service.NewFundsService(f.users, f.deposits, f.withdrawals, f.tx, f.clock, 20)
}

func (f *fixture) userService() *service.UserService {
	return service.NewUserService(f.users, f.otps, f.bets, f.deposits, f.withdrawals, f.sms, f.clock,
		service.OTPPolicy{TTL: 5 * time.Minute, MaxAttempts: 3, PhonePrefix: "+91"})
}

// seedGame stores a game with the given id created at the fixture's current time.
func (f *fixture) seedGame(t *testing.T, gameID string) *models.Game {
	t.Helper()
	g := models.NewGame(gameID, f.now)
	g.Account1 = models.PaymentAccount{QRImage: "https://img.example/qr1.png", IFSCCode: "HDFC0001234", AccountNumber: "50100012345678"}
	g.Account2 = models.PaymentAccount{QRImage: "https://img.example/qr2.png", IFSCCode: "SBIN0004321", AccountNumber: "30012345678"}
	require.NoError(t, f.games.Create(context.Background(), g))
	return g
}

func (f *fixture) balance(t *testing.T, u *models.User) int64 {
	t.Helper()
	got, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.Balance
}
