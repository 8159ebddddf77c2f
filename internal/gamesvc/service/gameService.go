package service

import (
	"context"
	"errors"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

type GameService struct {
	games    GameRepository
	notifier Notifier
	clock    *gameday.Clock
}

func NewGameService(games GameRepository, notifier Notifier, clock *gameday.Clock) *GameService {
	return &GameService{games: games, notifier: notifier, clock: clock}
}

// CurrentGameID is the id bets are placed against right now.
func (s *GameService) CurrentGameID() string {
	return gameday.CurrentGameID(s.clock.Time())
}

// CreateGame creates tomorrow's game, carrying the payment accounts over from the latest game.
func (s *GameService) CreateGame(ctx context.Context) (*models.Game, error) {
	now := s.clock.Time()
	gameID := gameday.NextGameID(now)

	_, err := s.games.GetByGameID(ctx, gameID)
	if err == nil {
		return nil, apperr.Conflicts("Game already created")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}

	prev, err := s.games.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Conflicts("No previous game found to inherit properties.")
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	game := models.NewGame(gameID, now)
	game.Account1 = prev.Account1
	game.Account2 = prev.Account2

	if err := s.games.Create(ctx, game); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflicts("Game already created")
		}
		return nil, apperr.Unexpected(err)
	}

	log.Infof("game %s created", gameID)
	return game, nil
}

// RecordWinningNumber fixes the number of one slot. A slot can be set only once.
func (s *GameService) RecordWinningNumber(ctx context.Context, gameID string, slot, number int) (*models.Game, error) {
	if gameID == "" {
		return nil, apperr.Invalid("Slot number, winning number, and game ID are required")
	}
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	if err := validNumber(number); err != nil {
		return nil, err
	}

	game, err := s.games.SetWinningNumber(ctx, gameID, slot, number, "", s.clock.Time())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.Missing("Game not found")
	case errors.Is(err, store.ErrSlotTaken):
		return nil, apperr.Conflicts("Winning number already set for this slot")
	case err != nil:
		return nil, apperr.Unexpected(err)
	}

	log.Infof("game %s slot %d drawn: %d", gameID, slot, number)
	s.notifier.NumberDrawn(comm.NumWon{GameId: gameID, WinningNumber: number, SlotNumber: slot})
	return game, nil
}

type WinningNumbers struct {
	WinningNumbers []*int `json:"winningNumbers"`
	IsActive       bool   `json:"isActive"`
}

func (s *GameService) WinningNumbers(ctx context.Context, gameID string) (*WinningNumbers, error) {
	game, err := s.games.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, notFoundOr(err, "Game not found")
	}
	return &WinningNumbers{WinningNumbers: game.WinningNumbers, IsActive: game.IsActive}, nil
}

func (s *GameService) LatestGame(ctx context.Context) (*models.Game, error) {
	game, err := s.games.Latest(ctx)
	if err != nil {
		return nil, notFoundOr(err, "No game found")
	}
	return game, nil
}

func (s *GameService) AllGames(ctx context.Context) ([]*models.Game, error) {
	games, err := s.games.List(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return games, nil
}

func (s *GameService) PaymentDetails(ctx context.Context) (*models.PaymentDetails, error) {
	game, err := s.games.Latest(ctx)
	if err != nil {
		return nil, notFoundOr(err, "No QR details found")
	}
	details := game.PaymentDetails()
	return &details, nil
}

// UpdatePaymentDetails changes the bank details of one account on the latest game.
func (s *GameService) UpdatePaymentDetails(ctx context.Context, account, ifsc, accountNumber string) (*models.Game, error) {
	if err := validAccount(account); err != nil {
		return nil, err
	}
	latest, err := s.games.Latest(ctx)
	if err != nil {
		return nil, notFoundOr(err, "No active game found")
	}

	game, err := s.games.UpdateAccountDetails(ctx, latest.ID, account, ifsc, accountNumber)
	if err != nil {
		return nil, notFoundOr(err, "No active game found")
	}

	acc, _ := game.Account(account)
	s.notifier.QRUpdated(comm.QRData{
		QR:              acc.QRImage,
		IFSCCode:        acc.IFSCCode,
		AccountNumber:   acc.AccountNumber,
		SelectedAccount: account,
	})
	return game, nil
}

// UpdatePaymentQR replaces the QR image of one account on the latest game.
func (s *GameService) UpdatePaymentQR(ctx context.Context, account, imageURL string) (*models.Game, error) {
	if err := validAccount(account); err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, apperr.Invalid("Image URL is required")
	}
	latest, err := s.games.Latest(ctx)
	if err != nil {
		return nil, notFoundOr(err, "No active game found")
	}

	game, err := s.games.UpdateAccountQR(ctx, latest.ID, account, imageURL)
	if err != nil {
		return nil, notFoundOr(err, "No active game found")
	}

	s.notifier.QROnlyUpdated(comm.QROnly{QR: imageURL, SelectedAccount: account})
	return game, nil
}

// EnsureGame returns gameID. Only the game bets currently attach to is created
// on demand: today's before the cutoff, tomorrow's after it, so a lookup can
// never put an arbitrary game in front of the active one.
func (s *GameService) EnsureGame(ctx context.Context, gameID string) (*models.Game, error) {
	if gameID == "" {
		return nil, apperr.Invalid("Game ID is required")
	}
	if !gameday.ValidGameID(gameID) {
		return nil, apperr.Invalid("Invalid game ID")
	}
	now := s.clock.Time()
	current := gameday.CurrentGameID(now)

	if gameID == current || gameday.PastCutoff(now) {
		if _, err := s.ensure(ctx, current); err != nil {
			return nil, err
		}
	}

	game, err := s.games.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, notFoundOr(err, "Game not found")
	}
	return game, nil
}

func (s *GameService) ensure(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := s.games.GetByGameID(ctx, gameID)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}

	game = models.NewGame(gameID, s.clock.Time())
	if prev, err := s.games.Latest(ctx); err == nil {
		game.Account1 = prev.Account1
		game.Account2 = prev.Account2
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}

	err = s.games.Create(ctx, game)
	if errors.Is(err, store.ErrDuplicate) {
		// created concurrently
		existing, gerr := s.games.GetByGameID(ctx, gameID)
		if gerr != nil {
			return nil, apperr.Unexpected(gerr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	log.Infof("game %s created on demand", gameID)
	return game, nil
}

func validAccount(account string) error {
	if account != models.Account1 && account != models.Account2 {
		return apperr.Invalid("selectedAccount must be account1 or account2")
	}
	return nil
}
