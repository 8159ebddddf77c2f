package store

import (
	"context"
	"fmt"

	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OTPStore keeps pending one-time codes. The TTL index on expires_at removes
// stale entries, but readers still check ExpiresAt since the TTL monitor runs
// only once a minute.
type OTPStore struct {
	coll *mongo.Collection
}

func NewOTPStore(database *mongo.Database) *OTPStore {
	return &OTPStore{coll: database.Collection(db.OTPs)}
}

// Save replaces any earlier code issued for the same key.
func (s *OTPStore) Save(ctx context.Context, o *models.OTP) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": o.Key}, o, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, key string) (*models.OTP, error) {
	o := &models.OTP{}
	if err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(o); err != nil {
		return nil, fmt.Errorf("find otp: %w", translate(err))
	}
	return o, nil
}

// IncrementAttempts records a failed verification and returns the new count.
func (s *OTPStore) IncrementAttempts(ctx context.Context, key string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	o := &models.OTP{}
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"attempts": 1}}, opts).Decode(o)
	if err != nil {
		return 0, fmt.Errorf("count otp attempt: %w", translate(err))
	}
	return o.Attempts, nil
}

func (s *OTPStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
