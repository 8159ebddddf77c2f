package service

import (
	"errors"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notFoundOr maps store.ErrNotFound to a not_found error with msg and anything
// else to an internal error.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Missing(msg)
	}
	return apperr.Unexpected(err)
}

// objectID parses a hex id. A malformed id cannot match any document, so it
// is reported the same way as an unknown one.
func objectID(hex, notFoundMsg string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Missing(notFoundMsg)
	}
	return id, nil
}

func validSlot(slot int) error {
	if slot < 1 || slot > 5 {
		return apperr.Invalid("Slot number must be between 1 and 5")
	}
	return nil
}

func validNumber(n int) error {
	if n < 1 || n > 10 {
		return apperr.Invalid("Number must be between 1 and 10")
	}
	return nil
}
