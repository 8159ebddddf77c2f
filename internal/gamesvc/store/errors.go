package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound            = errors.New("document not found")
	ErrDuplicate           = errors.New("duplicate key")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotPending          = errors.New("document is no longer pending")
	ErrSlotTaken           = errors.New("slot already has a winning number")
	ErrAlreadyCredited     = errors.New("bet result already credited")
)

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
