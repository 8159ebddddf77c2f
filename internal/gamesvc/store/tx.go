package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs a unit of work inside a MongoDB transaction. Transactions need a
// replica set; with transactions disabled the work runs directly on ctx.
type TxRunner struct {
	client  *mongo.Client
	enabled bool
}

func NewTxRunner(db *mongo.Database, enabled bool) *TxRunner {
	return &TxRunner{client: db.Client(), enabled: enabled}
}

func (t *TxRunner) Atomic() bool {
	return t.enabled
}

// InTx may call fn more than once when the server reports a transient error.
func (t *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
