package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FundsStatus is shared by deposits and withdrawals.
type FundsStatus string

const (
	FundsPending  FundsStatus = "pending"
	FundsApproved FundsStatus = "approved"
	FundsRejected FundsStatus = "rejected"
)

type Deposit struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Name          string             `bson:"name" json:"name"`
	DepositAmount int64              `bson:"depositAmount" json:"depositAmount"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	ProofImgURL   string             `bson:"proofImgUrl" json:"proofImgUrl"`
	Status        FundsStatus        `bson:"status" json:"status"`
	ApprovedAt    *time.Time         `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedAt    *time.Time         `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// payment modes
const (
	ModeBankTransfer = "bankTransfer"
	ModeUPI          = "upiTransaction"
)

type BankDetails struct {
	AccountHolderName string `bson:"accountHolderName" json:"accountHolderName"`
	BankName          string `bson:"bankName" json:"bankName"`
	AccountNumber     string `bson:"accountNumber" json:"accountNumber"`
	IFSCCode          string `bson:"ifscCode" json:"ifscCode"`
}

// Withdrawal carries either BankDetails or UPIID, selected by PaymentMode.
type Withdrawal struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	Username         string             `bson:"username" json:"username"`
	WithdrawalAmount int64              `bson:"withdrawalAmount" json:"withdrawalAmount"`
	PaymentMode      string             `bson:"paymentMode" json:"paymentMode"`
	UPIID            string             `bson:"upiId,omitempty" json:"upiId,omitempty"`
	BankDetails      *BankDetails       `bson:"bankDetails,omitempty" json:"bankDetails,omitempty"`
	Status           FundsStatus        `bson:"status" json:"status"`
	ApprovedAt       *time.Time         `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedAt       *time.Time         `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TransactionDetails aggregates everything money-related for one user.
type TransactionDetails struct {
	User        *User         `json:"user"`
	Withdrawals []*Withdrawal `json:"withdrawals"`
	Deposits    []*Deposit    `json:"deposits"`
	Bets        []*Bet        `json:"bets"`
}
