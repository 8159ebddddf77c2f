package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AdminStore struct {
	coll *mongo.Collection
}

func NewAdminStore(database *mongo.Database) *AdminStore {
	return &AdminStore{coll: database.Collection(db.Admins)}
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a := &models.Admin{}
	if err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(a); err != nil {
		return nil, fmt.Errorf("find admin: %w", translate(err))
	}
	return a, nil
}

// Upsert creates the admin or replaces its password hash and role.
func (s *AdminStore) Upsert(ctx context.Context, a *models.Admin) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"email": a.Email},
		bson.M{
			"$set":         bson.M{"password": a.Password, "role": a.Role},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", translate(err))
	}
	return nil
}
