package models

import "time"

type OTPPurpose string

const (
	OTPRegister OTPPurpose = "register"
	OTPReset    OTPPurpose = "reset"
)

// PendingRegistration is held until the phone number is verified.
type PendingRegistration struct {
	Name         string `bson:"name"`
	Phone        string `bson:"phone"`
	PasswordHash string `bson:"passwordHash"`
}

// OTP is a one-time code waiting for verification. MongoDB removes it after ExpiresAt.
type OTP struct {
	Key       string               `bson:"_id"`
	Phone     string               `bson:"phone"`
	Purpose   OTPPurpose           `bson:"purpose"`
	Secret    string               `bson:"secret"`
	Attempts  int                  `bson:"attempts"`
	Pending   *PendingRegistration `bson:"pending,omitempty"`
	ExpiresAt time.Time            `bson:"expires_at"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func OTPKey(purpose OTPPurpose, phone string) string {
	return string(purpose) + ":" + phone
}
