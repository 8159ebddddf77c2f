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

// fundsColl holds the helpers shared by deposit and withdrawal requests,
// which follow the same pending -> approved|rejected life cycle.
type fundsColl struct {
	coll *mongo.Collection
}

func (f fundsColl) insert(ctx context.Context, doc interface{}) error {
	if _, err := f.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", f.coll.Name(), translate(err))
	}
	return nil
}

func (f fundsColl) get(ctx context.Context, id primitive.ObjectID, out interface{}) error {
	if err := f.coll.FindOne(ctx, bson.M{"_id": id}).Decode(out); err != nil {
		return fmt.Errorf("find %s %s: %w", f.coll.Name(), id.Hex(), translate(err))
	}
	return nil
}

func (f fundsColl) list(ctx context.Context, filter bson.M, out interface{}) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := f.coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("list %s: %w", f.coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", f.coll.Name(), err)
	}
	return nil
}

// transition applies pending -> to. It returns ErrNotFound for an unknown id and
// ErrNotPending when the request was already processed.
func (f fundsColl) transition(ctx context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time, out interface{}) error {
	set := bson.M{"status": to, "updatedAt": at}
	switch to {
	case models.FundsApproved:
		set["approvedAt"] = at
	case models.FundsRejected:
		set["rejectedAt"] = at
	default:
		return fmt.Errorf("invalid target status %q", to)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := f.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.FundsPending},
		bson.M{"$set": set},
		opts,
	).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("update %s %s: %w", f.coll.Name(), id.Hex(), err)
	}

	n, err := f.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", f.coll.Name(), id.Hex(), err)
	}
	if n == 0 {
		return fmt.Errorf("update %s %s: %w", f.coll.Name(), id.Hex(), ErrNotFound)
	}
	return fmt.Errorf("update %s %s: %w", f.coll.Name(), id.Hex(), ErrNotPending)
}

type DepositStore struct {
	fundsColl
}

func NewDepositStore(database *mongo.Database) *DepositStore {
	return &DepositStore{fundsColl{coll: database.Collection(db.Deposits)}}
}

func (s *DepositStore) Create(ctx context.Context, d *models.Deposit) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	return s.insert(ctx, d)
}

func (s *DepositStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deposit, error) {
	d := &models.Deposit{}
	if err := s.get(ctx, id, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DepositStore) ListByStatus(ctx context.Context, status models.FundsStatus) ([]*models.Deposit, error) {
	out := []*models.Deposit{}
	if err := s.list(ctx, bson.M{"status": status}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DepositStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Deposit, error) {
	out := []*models.Deposit{}
	if err := s.list(ctx, bson.M{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DepositStore) Transition(ctx context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Deposit, error) {
	d := &models.Deposit{}
	if err := s.transition(ctx, id, to, at, d); err != nil {
		return nil, err
	}
	return d, nil
}

type WithdrawalStore struct {
	fundsColl
}

func NewWithdrawalStore(database *mongo.Database) *WithdrawalStore {
	return &WithdrawalStore{fundsColl{coll: database.Collection(db.Withdrawals)}}
}

func (s *WithdrawalStore) Create(ctx context.Context, w *models.Withdrawal) error {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	return s.insert(ctx, w)
}

func (s *WithdrawalStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	if err := s.get(ctx, id, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WithdrawalStore) ListByStatus(ctx context.Context, status models.FundsStatus) ([]*models.Withdrawal, error) {
	out := []*models.Withdrawal{}
	if err := s.list(ctx, bson.M{"status": status}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WithdrawalStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Withdrawal, error) {
	out := []*models.Withdrawal{}
	if err := s.list(ctx, bson.M{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WithdrawalStore) Transition(ctx context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	if err := s.transition(ctx, id, to, at, w); err != nil {
		return nil, err
	}
	return w, nil
}
