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

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(database *mongo.Database) *UserStore {
	return &UserStore{coll: database.Collection(db.Users)}
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("could not create user: %w", translate(err))
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"phone": phone})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	u := &models.User{}
	if err := s.coll.FindOne(ctx, filter).Decode(u); err != nil {
		return nil, fmt.Errorf("find user: %w", translate(err))
	}
	return u, nil
}

func (s *UserStore) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": hash, "updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set password: %w", ErrNotFound)
	}
	return nil
}

// Debit subtracts amount only while the balance covers it, so concurrent debits
// can never drive the balance below zero.
func (s *UserStore) Debit(ctx context.Context, id primitive.ObjectID, amount int64) (*models.User, error) {
	filter := bson.M{"_id": id, "balance": bson.M{"$gte": amount}}
	u, err := s.inc(ctx, filter, bson.M{"balance": -amount})
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("debit user %s: %w", id.Hex(), err)
	}

	n, cerr := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, fmt.Errorf("debit user %s: %w", id.Hex(), cerr)
	}
	if n == 0 {
		return nil, fmt.Errorf("debit user %s: %w", id.Hex(), ErrNotFound)
	}
	return nil, fmt.Errorf("debit user %s: %w", id.Hex(), ErrInsufficientBalance)
}

func (s *UserStore) Credit(ctx context.Context, id primitive.ObjectID, amount int64) (*models.User, error) {
	u, err := s.inc(ctx, bson.M{"_id": id}, bson.M{"balance": amount})
	if err != nil {
		return nil, fmt.Errorf("credit user %s: %w", id.Hex(), err)
	}
	return u, nil
}

// ApplySettlement books one settled bet: the payout, the bet count and, for a win, the win count.
func (s *UserStore) ApplySettlement(ctx context.Context, id primitive.ObjectID, winAmount int64, won bool) (*models.User, error) {
	wins := int64(0)
	if won {
		wins = 1
	}
	u, err := s.inc(ctx, bson.M{"_id": id}, bson.M{
		"balance":   winAmount,
		"totalBets": int64(1),
		"totalWins": wins,
	})
	if err != nil {
		return nil, fmt.Errorf("settle user %s: %w", id.Hex(), err)
	}
	return u, nil
}

func (s *UserStore) inc(ctx context.Context, filter bson.M, fields bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$inc": fields,
		"$set": bson.M{"updatedAt": time.Now()},
	}

	u := &models.User{}
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(u); err != nil {
		return nil, translate(err)
	}
	return u, nil
}
