package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GameStore struct {
	coll *mongo.Collection
}

func NewGameStore(database *mongo.Database) *GameStore {
	return &GameStore{coll: database.Collection(db.Games)}
}

func (s *GameStore) Create(ctx context.Context, g *models.Game) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("could not create game %s: %w", g.GameID, translate(err))
	}
	return nil
}

func (s *GameStore) GetByGameID(ctx context.Context, gameID string) (*models.Game, error) {
	g := &models.Game{}
	if err := s.coll.FindOne(ctx, bson.M{"gameId": gameID}).Decode(g); err != nil {
		return nil, fmt.Errorf("find game %s: %w", gameID, translate(err))
	}
	return g, nil
}

// Latest returns the most recently created game.
func (s *GameStore) Latest(ctx context.Context) (*models.Game, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	g := &models.Game{}
	if err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(g); err != nil {
		return nil, fmt.Errorf("find latest game: %w", translate(err))
	}
	return g, nil
}

func (s *GameStore) List(ctx context.Context) ([]*models.Game, error) {
	return s.find(ctx, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// ListRecent returns up to limit games, newest first.
func (s *GameStore) ListRecent(ctx context.Context, limit int64) ([]*models.Game, error) {
	return s.find(ctx, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit))
}

func (s *GameStore) find(ctx context.Context, opts *options.FindOptions) ([]*models.Game, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := []*models.Game{}
	if err := cur.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return games, nil
}

// SetWinningNumber sets a slot only while it is still unset (null or 0). The
// multiplier is stored beside it so an interrupted settlement can be resumed,
// and the draw time so bets placed afterwards are never settled against it.
func (s *GameStore) SetWinningNumber(ctx context.Context, gameID string, slot, number int, multiplier string, at time.Time) (*models.Game, error) {
	numKey := fmt.Sprintf("winningNumbers.%d", slot-1)
	mulKey := fmt.Sprintf("multipliers.%d", slot-1)
	atKey := fmt.Sprintf("drawnAt.%d", slot)

	filter := bson.M{"gameId": gameID, numKey: bson.M{"$in": bson.A{nil, 0}}}
	update := bson.M{"$set": bson.M{numKey: number, mulKey: multiplier, atKey: at}}

	g, err := s.update(ctx, filter, update)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("set winning number %s/%d: %w", gameID, slot, err)
	}
	if _, gerr := s.GetByGameID(ctx, gameID); gerr != nil {
		return nil, gerr
	}
	return nil, fmt.Errorf("set winning number %s/%d: %w", gameID, slot, ErrSlotTaken)
}

// SetMultiplier records the payout multiplier of a drawn slot if none was stored yet.
func (s *GameStore) SetMultiplier(ctx context.Context, gameID string, slot int, multiplier string) (*models.Game, error) {
	mulKey := fmt.Sprintf("multipliers.%d", slot-1)

	filter := bson.M{"gameId": gameID, mulKey: bson.M{"$in": bson.A{nil, ""}}}
	update := bson.M{"$set": bson.M{mulKey: multiplier}}

	g, err := s.update(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return s.GetByGameID(ctx, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("set multiplier %s/%d: %w", gameID, slot, err)
	}
	return g, nil
}

func (s *GameStore) UpdateAccountDetails(ctx context.Context, id primitive.ObjectID, account, ifsc, accountNumber string) (*models.Game, error) {
	update := bson.M{"$set": bson.M{
		account + ".ifscCode":      ifsc,
		account + ".accountNumber": accountNumber,
	}}
	g, err := s.update(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("update %s details: %w", account, err)
	}
	return g, nil
}

func (s *GameStore) UpdateAccountQR(ctx context.Context, id primitive.ObjectID, account, qrImage string) (*models.Game, error) {
	update := bson.M{"$set": bson.M{account + ".qrImage": qrImage}}
	g, err := s.update(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("update %s qr: %w", account, err)
	}
	return g, nil
}

func (s *GameStore) update(ctx context.Context, filter, update bson.M) (*models.Game, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	g := &models.Game{}
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(g); err != nil {
		return nil, translate(err)
	}
	return g, nil
}
