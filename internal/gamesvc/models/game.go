package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SlotCount = 5
	MinNumber = 1
	MaxNumber = 10
)

// account selectors used by the admin payment-profile endpoints
const (
	Account1 = "account1"
	Account2 = "account2"
)

type PaymentAccount struct {
	QRImage       string `bson:"qrImage" json:"qrImage"`
	IFSCCode      string `bson:"ifscCode" json:"ifscCode"`
	AccountNumber string `bson:"accountNumber" json:"accountNumber"`
}

// Game is the daily record: five slot results plus the day's payment collection details.
type Game struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	GameID         string               `bson:"gameId" json:"gameId"` // GAMEddmmyyyy
	IsActive       bool                 `bson:"isActive" json:"isActive"`
	WinningNumbers []*int               `bson:"winningNumbers" json:"winningNumbers"`
	Multipliers    []string             `bson:"multipliers" json:"multipliers"`             // decimal strings, per slot
	DrawnAt        map[string]time.Time `bson:"drawnAt,omitempty" json:"drawnAt,omitempty"` // keyed by slot number
	Account1       PaymentAccount       `bson:"account1" json:"account1"`
	Account2       PaymentAccount       `bson:"account2" json:"account2"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

// NewGame returns an active game with all slots unset.
func NewGame(gameID string, now time.Time) *Game {
	return &Game{
		GameID:         gameID,
		IsActive:       true,
		WinningNumbers: make([]*int, SlotCount),
		Multipliers:    make([]string, SlotCount),
		CreatedAt:      now,
	}
}

// SlotNumber returns the drawn number of slot (1-based). Zero counts as unset.
func (g *Game) SlotNumber(slot int) (int, bool) {
	if slot < 1 || slot > len(g.WinningNumbers) {
		return 0, false
	}
	n := g.WinningNumbers[slot-1]
	if n == nil || *n == 0 {
		return 0, false
	}
	return *n, true
}

// SlotMultiplier returns the multiplier stored when slot was drawn, if any.
func (g *Game) SlotMultiplier(slot int) string {
	if slot < 1 || slot > len(g.Multipliers) {
		return ""
	}
	return g.Multipliers[slot-1]
}

// SlotDrawnAt returns when slot got its winning number. Games drawn before the
// time was recorded report false.
func (g *Game) SlotDrawnAt(slot int) (time.Time, bool) {
	at, ok := g.DrawnAt[strconv.Itoa(slot)]
	return at, ok
}

func (g *Game) Account(name string) (*PaymentAccount, bool) {
	switch name {
	case Account1:
		return &g.Account1, true
	case Account2:
		return &g.Account2, true
	}
	return nil, false
}

// PaymentDetails is the flattened view the deposit page reads.
type PaymentDetails struct {
	ImageUrl1      string `json:"imageUrl1"`
	IfscCode1      string `json:"ifscCode1"`
	AccountNumber1 string `json:"accountNumber1"`
	ImageUrl2      string `json:"imageUrl2"`
	IfscCode2      string `json:"ifscCode2"`
	AccountNumber2 string `json:"accountNumber2"`
}

func (g *Game) PaymentDetails() PaymentDetails {
	return PaymentDetails{
		ImageUrl1:      g.Account1.QRImage,
		IfscCode1:      g.Account1.IFSCCode,
		AccountNumber1: g.Account1.AccountNumber,
		ImageUrl2:      g.Account2.QRImage,
		IfscCode2:      g.Account2.IFSCCode,
		AccountNumber2: g.Account2.AccountNumber,
	}
}
