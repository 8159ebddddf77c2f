package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a player account. Balance is in whole currency units.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Balance   int64              `bson:"balance" json:"balance"`
	Coins     int64              `bson:"coins" json:"coins"`
	TotalBets int64              `bson:"totalBets" json:"totalBets"`
	TotalWins int64              `bson:"totalWins" json:"totalWins"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserStats is the lightweight projection polled by the dashboard.
type UserStats struct {
	ID        primitive.ObjectID `json:"_id"`
	Balance   int64              `json:"balance"`
	TotalWins int64              `json:"totalWins"`
	TotalBets int64              `json:"totalBets"`
}

func (u *User) Stats() UserStats {
	return UserStats{ID: u.ID, Balance: u.Balance, TotalWins: u.TotalWins, TotalBets: u.TotalBets}
}
