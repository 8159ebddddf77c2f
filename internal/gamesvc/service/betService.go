package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BetLimits struct {
	Min int64
	Max int64
}

type BetService struct {
	users  UserRepository
	games  GameRepository
	bets   BetRepository
	tx     Transactor
	clock  *gameday.Clock
	limits BetLimits
}

func NewBetService(users UserRepository, games GameRepository, bets BetRepository, tx Transactor, clock *gameday.Clock, limits BetLimits) *BetService {
	return &BetService{users: users, games: games, bets: bets, tx: tx, clock: clock, limits: limits}
}

type PlaceBetInput struct {
	UserID         string
	Username       string
	SlotNumber     int
	SelectedNumber int
	BetAmount      int64
}

type BetReceipt struct {
	Bet            *models.Bet `json:"bet"`
	UpdatedBalance int64       `json:"updatedBalance"`
}

// PlaceBet debits the stake and records a pending bet on the most recently created
// game. A slot of that game that already has its winning number takes no more bets.
func (s *BetService) PlaceBet(ctx context.Context, in PlaceBetInput) (*BetReceipt, error) {
	if err := validSlot(in.SlotNumber); err != nil {
		return nil, err
	}
	if err := validNumber(in.SelectedNumber); err != nil {
		return nil, err
	}

	userID, err := objectID(in.UserID, "User not found")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	if in.BetAmount < s.limits.Min || in.BetAmount > s.limits.Max {
		return nil, apperr.Invalid(fmt.Sprintf("Bet amount must be between %d and %d", s.limits.Min, s.limits.Max))
	}
	if user.Balance < in.BetAmount {
		return nil, apperr.Conflicts("Insufficient balance")
	}

	game, err := s.games.Latest(ctx)
	if err != nil {
		return nil, notFoundOr(err, "No game found")
	}
	if _, drawn := game.SlotNumber(in.SlotNumber); drawn {
		return nil, apperr.Conflicts("Betting for this slot is closed")
	}

	now := s.clock.Time()
	slotTime, err := gameday.SlotTime(now, in.SlotNumber)
	if err != nil {
		return nil, apperr.Invalid(err.Error())
	}

	username := in.Username
	if username == "" {
		username = user.Username
	}

	bet := &models.Bet{
		UserID:         userID,
		Username:       username,
		GameRef:        game.ID,
		GameID:         game.GameID,
		SlotNumber:     in.SlotNumber,
		SelectedNumber: in.SelectedNumber,
		BetAmount:      in.BetAmount,
		SlotTime:       slotTime,
		Status:         models.BetPending,
		CreatedAt:      now,
	}

	var balance int64
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		bet.ID = primitive.NilObjectID
		updated, err := s.users.Debit(ctx, userID, in.BetAmount)
		if err != nil {
			return err
		}
		balance = updated.Balance

		if err := s.bets.Create(ctx, bet); err != nil {
			if !s.tx.Atomic() {
				s.refund(ctx, userID, in.BetAmount)
			}
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		return nil, apperr.Conflicts("Insufficient balance")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.Missing("User not found")
	case err != nil:
		return nil, apperr.Unexpected(err)
	}

	log.Infof("bet %s placed: user %s game %s slot %d number %d amount %d",
		bet.ID.Hex(), userID.Hex(), bet.GameID, bet.SlotNumber, bet.SelectedNumber, bet.BetAmount)
	return &BetReceipt{Bet: bet, UpdatedBalance: balance}, nil
}

func (s *BetService) refund(ctx context.Context, userID primitive.ObjectID, amount int64) {
	if _, err := s.users.Credit(ctx, userID, amount); err != nil {
		log.Errorf("refund of %d to user %s failed: %v", amount, userID.Hex(), err)
	}
}

// ListBets returns every bet, or the bets of one user when userID is not empty.
func (s *BetService) ListBets(ctx context.Context, userID string) ([]*models.Bet, error) {
	var filter *primitive.ObjectID
	if userID != "" {
		id, err := objectID(userID, "User not found")
		if err != nil {
			return nil, err
		}
		filter = &id
	}

	bets, err := s.bets.List(ctx, filter)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return bets, nil
}
