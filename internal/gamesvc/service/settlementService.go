package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/metrics"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// games scanned by the pending-bet sweep
const sweepGames = 3

const outcomeError = "error"
const outcomeSkipped = "skipped"

// settled bets younger than this may still be having their result applied
const creditGrace = time.Minute

type SettlementService struct {
	games    GameRepository
	bets     BetRepository
	users    UserRepository
	tx       Transactor
	notifier Notifier
	clock    *gameday.Clock

	workers           int
	defaultMultiplier decimal.Decimal
}

func NewSettlementService(games GameRepository, bets BetRepository, users UserRepository, tx Transactor,
	notifier Notifier, clock *gameday.Clock, workers int, defaultMultiplier decimal.Decimal) *SettlementService {
	if workers < 1 {
		workers = 1
	}
	return &SettlementService{
		games:             games,
		bets:              bets,
		users:             users,
		tx:                tx,
		notifier:          notifier,
		clock:             clock,
		workers:           workers,
		defaultMultiplier: defaultMultiplier,
	}
}

// Outcome reports what happened to one bet. Status is won, lost, skipped (settled
// elsewhere in the meantime) or error.
type Outcome struct {
	BetID     primitive.ObjectID `json:"betId"`
	UserID    primitive.ObjectID `json:"userId"`
	Status    string             `json:"status"`
	WinAmount int64              `json:"winAmount"`
	Error     string             `json:"message,omitempty"`
}

type Settlement struct {
	Game     *models.Game `json:"updatedGame"`
	Outcomes []Outcome    `json:"processedBets"`
	Resumed  bool         `json:"resumed"`
}

// DrawAndSettle records the winning number of a slot and settles its pending bets.
// Calling it again with the same number settles whatever is still pending, so an
// interrupted run can be finished. A different number for a drawn slot is rejected.
func (s *SettlementService) DrawAndSettle(ctx context.Context, gameID string, slot, number int, multiplier decimal.Decimal) (*Settlement, error) {
	if gameID == "" {
		return nil, apperr.Invalid("Winning number, slot number, game ID, and multiplier are required")
	}
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	if err := validNumber(number); err != nil {
		return nil, err
	}
	if !multiplier.IsPositive() {
		return nil, apperr.Invalid("Multiplier must be greater than zero")
	}

	resumed := false
	game, err := s.games.SetWinningNumber(ctx, gameID, slot, number, multiplier.String(), s.clock.Time())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.Missing("Game not found")
	case errors.Is(err, store.ErrSlotTaken):
		game, multiplier, err = s.resume(ctx, gameID, slot, number, multiplier)
		if err != nil {
			return nil, err
		}
		resumed = true
	case err != nil:
		return nil, apperr.Unexpected(err)
	}

	outcomes, err := s.settleSlot(ctx, game, slot, number, multiplier)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if !resumed {
		s.notifier.NumberDrawn(comm.NumWon{GameId: gameID, WinningNumber: number, SlotNumber: slot})
	}

	log.Infof("game %s slot %d settled with %d at x%s: %d bets (resumed=%t)",
		gameID, slot, number, multiplier, len(outcomes), resumed)
	return &Settlement{Game: game, Outcomes: outcomes, Resumed: resumed}, nil
}

// resume validates a repeated draw and returns the multiplier the slot is settled with.
func (s *SettlementService) resume(ctx context.Context, gameID string, slot, number int, requested decimal.Decimal) (*models.Game, decimal.Decimal, error) {
	game, err := s.games.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, requested, notFoundOr(err, "Game not found")
	}
	drawn, _ := game.SlotNumber(slot)
	if drawn != number {
		return nil, requested, apperr.Conflicts("Winning number already set for this slot")
	}

	stored := game.SlotMultiplier(slot)
	if stored == "" {
		// drawn without a multiplier, pin the requested one
		if game, err = s.games.SetMultiplier(ctx, gameID, slot, requested.String()); err != nil {
			return nil, requested, apperr.Unexpected(err)
		}
		stored = game.SlotMultiplier(slot)
	}

	m, err := decimal.NewFromString(stored)
	if err != nil {
		return nil, requested, apperr.Unexpected(fmt.Errorf("stored multiplier %q: %w", stored, err))
	}
	if !m.Equal(requested) {
		log.Warnf("game %s slot %d already settles at x%s, ignoring x%s", gameID, slot, m, requested)
	}
	return game, m, nil
}

// ResumePending settles bets left pending on drawn slots of the most recent games,
// using the multiplier stored with each draw, and credits settled bets whose
// user update failed. Slots drawn without a multiplier wait for an explicit
// settlement. It returns the number of bets settled or credited.
func (s *SettlementService) ResumePending(ctx context.Context) (int, error) {
	games, err := s.games.ListRecent(ctx, sweepGames)
	if err != nil {
		return 0, fmt.Errorf("list recent games: %w", err)
	}

	settled := 0
	for _, g := range games {
		for slot := 1; slot <= models.SlotCount; slot++ {
			number, ok := g.SlotNumber(slot)
			if !ok {
				continue
			}
			stored := g.SlotMultiplier(slot)
			if stored == "" {
				continue
			}
			m, err := decimal.NewFromString(stored)
			if err != nil || !m.IsPositive() {
				log.Warnf("game %s slot %d has bad multiplier %q, using x%s", g.GameID, slot, stored, s.defaultMultiplier)
				m = s.defaultMultiplier
			}

			outcomes, err := s.settleSlot(ctx, g, slot, number, m)
			if err != nil {
				return settled, err
			}
			for _, o := range outcomes {
				if o.Status == string(models.BetWon) || o.Status == string(models.BetLost) {
					settled++
				}
			}
			if len(outcomes) > 0 {
				log.Infof("sweep settled game %s slot %d: %d pending bets processed", g.GameID, slot, len(outcomes))
			}
		}
	}
	return settled, nil
}

// settleSlot settles every pending bet of the game's slot concurrently and credits
// bets an earlier run settled without reaching the user. Bets placed after the
// slot was drawn are left pending. Failures are reported per bet and never stop
// the others.
func (s *SettlementService) settleSlot(ctx context.Context, game *models.Game, slot, number int, multiplier decimal.Decimal) ([]Outcome, error) {
	at := s.clock.Time()

	bets, err := s.bets.ListPending(ctx, game.GameID, slot)
	if err != nil {
		return nil, err
	}
	uncredited, err := s.bets.ListUncredited(ctx, game.GameID, slot, at.Add(-creditGrace))
	if err != nil {
		return nil, err
	}

	drawnAt, timed := game.SlotDrawnAt(slot)
	outcomes := make([]Outcome, len(bets)+len(uncredited))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, bet := range bets {
		if timed && bet.CreatedAt.After(drawnAt) {
			log.Warnf("bet %s on game %s slot %d placed at %s, after the draw at %s; not settled",
				bet.ID.Hex(), game.GameID, slot, bet.CreatedAt.Format(time.RFC3339), drawnAt.Format(time.RFC3339))
			outcomes[i] = Outcome{BetID: bet.ID, UserID: bet.UserID, Status: outcomeSkipped, Error: "Bet placed after the draw"}
			metrics.RecordSettled(outcomeSkipped)
			continue
		}
		g.Go(func() error {
			outcomes[i] = s.settleBet(ctx, bet, number, multiplier, at)
			metrics.RecordSettled(outcomes[i].Status)
			return nil
		})
	}
	for j, bet := range uncredited {
		i := len(bets) + j
		g.Go(func() error {
			outcomes[i] = s.creditSettled(ctx, bet)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (s *SettlementService) settleBet(ctx context.Context, bet *models.Bet, number int, multiplier decimal.Decimal, at time.Time) Outcome {
	won := bet.SelectedNumber == number
	status := models.BetLost
	var winAmount int64
	if won {
		status = models.BetWon
		winAmount = Payout(bet.BetAmount, multiplier)
	}

	out := Outcome{BetID: bet.ID, UserID: bet.UserID, Status: string(status), WinAmount: winAmount}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.bets.Settle(ctx, bet.ID, status, number, winAmount, at); err != nil {
			return err
		}
		return s.apply(ctx, bet.ID, bet.UserID, winAmount, won)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotPending):
		out.Status = outcomeSkipped
		out.WinAmount = 0
	default:
		if s.tx.Atomic() {
			log.Errorf("settle bet %s for user %s: %v", bet.ID.Hex(), bet.UserID.Hex(), err)
		} else {
			log.Errorf("settle bet %s for user %s: %v (a settled but uncredited bet is retried by the next run)",
				bet.ID.Hex(), bet.UserID.Hex(), err)
		}
		out.Status = outcomeError
		out.WinAmount = 0
		out.Error = err.Error()
	}
	return out
}

// apply moves a settled result onto the user and flags the bet credited.
func (s *SettlementService) apply(ctx context.Context, betID, userID primitive.ObjectID, winAmount int64, won bool) error {
	if _, err := s.users.ApplySettlement(ctx, userID, winAmount, won); err != nil {
		return err
	}
	if err := s.bets.MarkCredited(ctx, betID); err != nil {
		if !s.tx.Atomic() {
			log.Errorf("bet %s applied to user %s but not flagged credited: %v", betID.Hex(), userID.Hex(), err)
		}
		return err
	}
	return nil
}

// creditSettled finishes a bet whose status was stored while its user update failed.
func (s *SettlementService) creditSettled(ctx context.Context, bet *models.Bet) Outcome {
	won := bet.Status == models.BetWon
	out := Outcome{BetID: bet.ID, UserID: bet.UserID, Status: string(bet.Status), WinAmount: bet.WinAmount}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.apply(ctx, bet.ID, bet.UserID, bet.WinAmount, won)
	})
	switch {
	case err == nil:
		log.Infof("bet %s (%s) credited to user %s on retry", bet.ID.Hex(), bet.Status, bet.UserID.Hex())
	case errors.Is(err, store.ErrAlreadyCredited):
		out.Status = outcomeSkipped
		out.WinAmount = 0
	default:
		log.Errorf("credit settled bet %s for user %s: %v", bet.ID.Hex(), bet.UserID.Hex(), err)
		out.Status = outcomeError
		out.WinAmount = 0
		out.Error = err.Error()
	}
	return out
}

// Payout is floor(amount * multiplier).
func Payout(amount int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(multiplier).Floor().IntPart()
}
