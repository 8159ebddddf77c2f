package service

import (
	"context"
	"time"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The repositories are satisfied by the Mongo stores in package store and by
// the in-memory fakes in servicetest. Implementations report failures with the
// store sentinel errors.

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	Debit(ctx context.Context, id primitive.ObjectID, amount int64) (*models.User, error)
	Credit(ctx context.Context, id primitive.ObjectID, amount int64) (*models.User, error)
	ApplySettlement(ctx context.Context, id primitive.ObjectID, winAmount int64, won bool) (*models.User, error)
}

type GameRepository interface {
	Create(ctx context.Context, g *models.Game) error
	GetByGameID(ctx context.Context, gameID string) (*models.Game, error)
	Latest(ctx context.Context) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
	ListRecent(ctx context.Context, limit int64) ([]*models.Game, error)
	SetWinningNumber(ctx context.Context, gameID string, slot, number int, multiplier string, at time.Time) (*models.Game, error)
	SetMultiplier(ctx context.Context, gameID string, slot int, multiplier string) (*models.Game, error)
	UpdateAccountDetails(ctx context.Context, id primitive.ObjectID, account, ifsc, accountNumber string) (*models.Game, error)
	UpdateAccountQR(ctx context.Context, id primitive.ObjectID, account, qrImage string) (*models.Game, error)
}

type BetRepository interface {
	Create(ctx context.Context, b *models.Bet) error
	List(ctx context.Context, userID *primitive.ObjectID) ([]*models.Bet, error)
	ListPending(ctx context.Context, gameID string, slot int) ([]*models.Bet, error)
	Settle(ctx context.Context, id primitive.ObjectID, status models.BetStatus, winningNumber int, winAmount int64, at time.Time) error
	ListUncredited(ctx context.Context, gameID string, slot int, settledBefore time.Time) ([]*models.Bet, error)
	MarkCredited(ctx context.Context, id primitive.ObjectID) error
}

type DepositRepository interface {
	Create(ctx context.Context, d *models.Deposit) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deposit, error)
	ListByStatus(ctx context.Context, status models.FundsStatus) ([]*models.Deposit, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Deposit, error)
	Transition(ctx context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Deposit, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.FundsStatus) ([]*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Withdrawal, error)
	Transition(ctx context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Withdrawal, error)
}

type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Upsert(ctx context.Context, a *models.Admin) error
}

type OTPRepository interface {
	Save(ctx context.Context, o *models.OTP) error
	Get(ctx context.Context, key string) (*models.OTP, error)
	IncrementAttempts(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
}

// Transactor runs fn as one unit of work. When Atomic is false fn runs without
// a transaction and callers undo partial writes themselves.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

// Notifier pushes real-time events to connected web clients. Delivery is best effort.
type Notifier interface {
	QRUpdated(data comm.QRData)
	QROnlyUpdated(data comm.QROnly)
	NumberDrawn(data comm.NumWon)
}

// SMSSender delivers one-time codes.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}
