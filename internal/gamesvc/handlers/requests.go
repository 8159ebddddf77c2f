package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type validatable interface {
	Validate() error
}

// check runs the struct rules and reports the first failure as a validation error.
func check(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.Invalid("Invalid request")
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(fmt.Sprintf("%s is required", fe.Field()))
	case "oneof":
		return apperr.Invalid(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	default:
		return apperr.Invalid(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// The service reports a single message for any missing registration field.
func (r *registerRequest) Validate() error { return nil }

type verifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

func (r *verifyOTPRequest) Validate() error { return check(r) }

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error { return nil }

type sendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

func (r *sendOTPRequest) Validate() error { return check(r) }

type resetPasswordRequest struct {
	Phone       string `json:"phone" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (r *resetPasswordRequest) Validate() error { return check(r) }

type betRequest struct {
	UserID         string `json:"userId" validate:"required"`
	Username       string `json:"username"`
	SlotNumber     int    `json:"slotNumber"`
	SelectedNumber int    `json:"selectedNumber"`
	BetAmount      int64  `json:"betAmount"`
}

func (r *betRequest) Validate() error { return check(r) }

type drawRequest struct {
	GameID        string `json:"gameId" validate:"required"`
	SlotNumber    int    `json:"slotNumber" validate:"required"`
	WinningNumber int    `json:"winningNumber" validate:"required"`
}

func (r *drawRequest) Validate() error { return check(r) }

type processWinnersRequest struct {
	GameID        string          `json:"gameId"`
	SlotNumber    int             `json:"slotNumber"`
	WinningNumber int             `json:"winningNumber"`
	Multiplier    decimal.Decimal `json:"multiplier"`
}

func (r *processWinnersRequest) Validate() error {
	if r.GameID == "" || r.SlotNumber == 0 || r.WinningNumber == 0 || r.Multiplier.IsZero() {
		return apperr.Invalid("Winning number, slot number, game ID, and multiplier are required")
	}
	return nil
}

type gameDetailsRequest struct {
	SelectedAccount string `json:"selectedAccount" validate:"required,oneof=account1 account2"`
	IFSCCode        string `json:"ifscCode" validate:"required"`
	AccountNumber   string `json:"accountNumber" validate:"required"`
}

func (r *gameDetailsRequest) Validate() error { return check(r) }

type gameQRRequest struct {
	SelectedAccount string `json:"selectedAccount" validate:"required,oneof=account1 account2"`
	ImageURL        string `json:"imageUrl" validate:"required,url"`
}

func (r *gameQRRequest) Validate() error { return check(r) }

type depositRequest struct {
	UserID        string `json:"userId" validate:"required"`
	Name          string `json:"name"`
	DepositAmount int64  `json:"depositAmount"`
	TransactionID string `json:"transactionId"`
	ProofImgURL   string `json:"proofImgUrl"`
}

func (r *depositRequest) Validate() error { return check(r) }

type withdrawalRequest struct {
	UserID           string              `json:"userId" validate:"required"`
	Username         string              `json:"username"`
	WithdrawalAmount int64               `json:"withdrawalAmount"`
	PaymentMode      string              `json:"paymentMode"`
	UPIID            string              `json:"upiId"`
	BankDetails      *models.BankDetails `json:"bankDetails"`
}

func (r *withdrawalRequest) Validate() error { return check(r) }

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *adminLoginRequest) Validate() error { return check(r) }
