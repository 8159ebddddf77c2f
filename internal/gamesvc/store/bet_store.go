package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BetStore struct {
	coll *mongo.Collection
}

func NewBetStore(database *mongo.Database) *BetStore {
	return &BetStore{coll: database.Collection(db.Bets)}
}

func (s *BetStore) Create(ctx context.Context, b *models.Bet) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("could not create bet: %w", translate(err))
	}
	return nil
}

// List returns all bets, or only those of userID when it is set.
func (s *BetStore) List(ctx context.Context, userID *primitive.ObjectID) ([]*models.Bet, error) {
	filter := bson.M{}
	if userID != nil {
		filter["userId"] = *userID
	}
	return s.find(ctx, filter)
}

func (s *BetStore) ListPending(ctx context.Context, gameID string, slot int) ([]*models.Bet, error) {
	return s.find(ctx, bson.M{
		"gameId":     gameID,
		"slotNumber": slot,
		"status":     models.BetPending,
	})
}

func (s *BetStore) find(ctx context.Context, filter bson.M) ([]*models.Bet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	bets := []*models.Bet{}
	if err := cur.All(ctx, &bets); err != nil {
		return nil, fmt.Errorf("decode bets: %w", err)
	}
	return bets, nil
}

// Settle moves a pending bet to its terminal status. A bet that is no longer
// pending is left untouched and ErrNotPending is returned.
func (s *BetStore) Settle(ctx context.Context, id primitive.ObjectID, status models.BetStatus, winningNumber int, winAmount int64, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.BetPending},
		bson.M{"$set": bson.M{
			"status":        status,
			"winningNumber": winningNumber,
			"winAmount":     winAmount,
			"settledAt":     at,
			"credited":      false,
		}},
	)
	if err != nil {
		return fmt.Errorf("settle bet %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("settle bet %s: %w", id.Hex(), ErrNotPending)
	}
	return nil
}

// ListUncredited returns settled bets of (gameID, slot) whose result never reached
// the user, for bets settled at or before settledBefore.
func (s *BetStore) ListUncredited(ctx context.Context, gameID string, slot int, settledBefore time.Time) ([]*models.Bet, error) {
	return s.find(ctx, bson.M{
		"gameId":     gameID,
		"slotNumber": slot,
		"status":     bson.M{"$in": bson.A{models.BetWon, models.BetLost}},
		"credited":   false,
		"settledAt":  bson.M{"$lte": settledBefore},
	})
}

// MarkCredited flags a settled bet as applied to its user. A bet flagged before
// returns ErrAlreadyCredited.
func (s *BetStore) MarkCredited(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.BetPending}, "credited": false},
		bson.M{"$set": bson.M{"credited": true}},
	)
	if err != nil {
		return fmt.Errorf("mark bet %s credited: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mark bet %s credited: %w", id.Hex(), ErrAlreadyCredited)
	}
	return nil
}
