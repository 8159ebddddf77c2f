package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
)

type Bet struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Username       string             `bson:"username,omitempty" json:"username,omitempty"`
	GameRef        primitive.ObjectID `bson:"idOfGame" json:"idOfGame"`
	GameID         string             `bson:"gameId" json:"gameId"`
	SlotNumber     int                `bson:"slotNumber" json:"slotNumber"`
	SelectedNumber int                `bson:"selectedNumber" json:"selectedNumber"`
	BetAmount      int64              `bson:"betAmount" json:"betAmount"`
	SlotTime       time.Time          `bson:"slotTime" json:"slotTime"`
	Status         BetStatus          `bson:"status" json:"status"`
	WinningNumber  *int               `bson:"winningNumber,omitempty" json:"winningNumber,omitempty"`
	WinAmount      int64              `bson:"winAmount" json:"winAmount"`
	SettledAt      *time.Time         `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
	// Credited is set once the settled result reached the user's balance and counters.
	Credited  bool      `bson:"credited" json:"credited"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
