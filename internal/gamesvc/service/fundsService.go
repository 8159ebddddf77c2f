package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/metrics"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	accountNumberRe = regexp.MustCompile(`^\d{9,18}$`)
	ifscRe          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiRe           = regexp.MustCompile(`^[\w.\-]+@[\w\-]+$`)
)

const (
	msgDepositProcessed    = "Deposit has already been processed"
	msgWithdrawalProcessed = "Withdrawal request has already been processed"
)

// FundsService handles deposit and withdrawal requests. Deposits move money on
// approval; withdrawals reserve it on submission and give it back on rejection.
type FundsService struct {
	users       UserRepository
	deposits    DepositRepository
	withdrawals WithdrawalRepository
	tx          Transactor
	clock       *gameday.Clock
	minDeposit  int64
}

func NewFundsService(users UserRepository, deposits DepositRepository, withdrawals WithdrawalRepository,
	tx Transactor, clock *gameday.Clock, minDeposit int64) *FundsService {
	return &FundsService{
		users:       users,
		deposits:    deposits,
		withdrawals: withdrawals,
		tx:          tx,
		clock:       clock,
		minDeposit:  minDeposit,
	}
}

type DepositInput struct {
	UserID        string
	Name          string
	DepositAmount int64
	TransactionID string
	ProofImgURL   string
}

func (s *FundsService) SubmitDeposit(ctx context.Context, in DepositInput) (*models.Deposit, error) {
	userID, err := objectID(in.UserID, "User not found")
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	if in.DepositAmount < s.minDeposit {
		return nil, apperr.Invalid(fmt.Sprintf("Minimum deposit amount is ₹%d", s.minDeposit))
	}
	if strings.TrimSpace(in.TransactionID) == "" || strings.TrimSpace(in.ProofImgURL) == "" {
		return nil, apperr.Invalid("Please fill all required fields including screenshot")
	}

	now := s.clock.Time()
	d := &models.Deposit{
		UserID:        userID,
		Name:          in.Name,
		DepositAmount: in.DepositAmount,
		TransactionID: strings.TrimSpace(in.TransactionID),
		ProofImgURL:   strings.TrimSpace(in.ProofImgURL),
		Status:        models.FundsPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, apperr.Unexpected(err)
	}

	metrics.RecordFunds("deposit", string(models.FundsPending))
	log.Infof("deposit %s of %d submitted by user %s", d.ID.Hex(), d.DepositAmount, userID.Hex())
	return d, nil
}

// ApproveDeposit credits the claimed amount. The status guard makes a second
// approval fail instead of crediting twice.
func (s *FundsService) ApproveDeposit(ctx context.Context, depositID string) (*models.Deposit, error) {
	id, err := objectID(depositID, "Deposit not found")
	if err != nil {
		return nil, err
	}

	var deposit *models.Deposit
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.deposits.Transition(ctx, id, models.FundsApproved, s.clock.Time())
		if err != nil {
			return err
		}
		if _, err := s.users.Credit(ctx, d.UserID, d.DepositAmount); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Missing("User not found")
			}
			if !s.tx.Atomic() {
				log.Errorf("deposit %s approved but credit of %d to user %s failed: %v",
					d.ID.Hex(), d.DepositAmount, d.UserID.Hex(), err)
			}
			return err
		}
		deposit = d
		return nil
	})
	if err != nil {
		return nil, fundsError(err, "Deposit not found", msgDepositProcessed)
	}

	metrics.RecordFunds("deposit", string(models.FundsApproved))
	log.Infof("deposit %s approved, user %s credited %d", deposit.ID.Hex(), deposit.UserID.Hex(), deposit.DepositAmount)
	return deposit, nil
}

func (s *FundsService) RejectDeposit(ctx context.Context, depositID string) (*models.Deposit, error) {
	id, err := objectID(depositID, "Deposit not found")
	if err != nil {
		return nil, err
	}

	d, err := s.deposits.Transition(ctx, id, models.FundsRejected, s.clock.Time())
	if err != nil {
		return nil, fundsError(err, "Deposit not found", msgDepositProcessed)
	}

	metrics.RecordFunds("deposit", string(models.FundsRejected))
	log.Infof("deposit %s rejected", d.ID.Hex())
	return d, nil
}

func (s *FundsService) ListPendingDeposits(ctx context.Context) ([]*models.Deposit, error) {
	deposits, err := s.deposits.ListByStatus(ctx, models.FundsPending)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return deposits, nil
}

type WithdrawalInput struct {
	UserID           string
	Username         string
	WithdrawalAmount int64
	PaymentMode      string
	UPIID            string
	BankDetails      *models.BankDetails
}

func (in *WithdrawalInput) validate() error {
	if in.WithdrawalAmount < 1 {
		return apperr.Invalid("Withdrawal amount must be at least 1")
	}

	switch in.PaymentMode {
	case models.ModeBankTransfer:
		b := in.BankDetails
		if in.UPIID != "" {
			return apperr.Invalid("UPI ID is not allowed for bank transfer")
		}
		if b == nil || b.AccountHolderName == "" || b.BankName == "" || b.AccountNumber == "" || b.IFSCCode == "" {
			return apperr.Invalid("Bank details are required for bank transfer")
		}
		if !accountNumberRe.MatchString(b.AccountNumber) {
			return apperr.Invalid("Account number must be 9 to 18 digits")
		}
		if !ifscRe.MatchString(b.IFSCCode) {
			return apperr.Invalid("Invalid IFSC code")
		}
	case models.ModeUPI:
		if in.BankDetails != nil {
			return apperr.Invalid("Bank details are not allowed for UPI transaction")
		}
		if in.UPIID == "" {
			return apperr.Invalid("UPI ID is required for UPI transaction")
		}
		if !upiRe.MatchString(in.UPIID) {
			return apperr.Invalid("Invalid UPI ID")
		}
	default:
		return apperr.Invalid("Invalid payment mode")
	}
	return nil
}

// SubmitWithdrawal reserves the amount from the balance and files a pending request.
func (s *FundsService) SubmitWithdrawal(ctx context.Context, in WithdrawalInput) (*models.Withdrawal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	userID, err := objectID(in.UserID, "User not found")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if user.Balance < in.WithdrawalAmount {
		return nil, apperr.Conflicts("Insufficient balance")
	}

	username := in.Username
	if username == "" {
		username = user.Username
	}

	now := s.clock.Time()
	w := &models.Withdrawal{
		UserID:           userID,
		Username:         username,
		WithdrawalAmount: in.WithdrawalAmount,
		PaymentMode:      in.PaymentMode,
		UPIID:            in.UPIID,
		BankDetails:      in.BankDetails,
		Status:           models.FundsPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		w.ID = primitive.NilObjectID
		if _, err := s.users.Debit(ctx, userID, in.WithdrawalAmount); err != nil {
			return err
		}
		if err := s.withdrawals.Create(ctx, w); err != nil {
			if !s.tx.Atomic() {
				if _, rerr := s.users.Credit(ctx, userID, in.WithdrawalAmount); rerr != nil {
					log.Errorf("refund of %d to user %s failed: %v", in.WithdrawalAmount, userID.Hex(), rerr)
				}
			}
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		return nil, apperr.Conflicts("Insufficient balance")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.Missing("User not found")
	case err != nil:
		return nil, apperr.Unexpected(err)
	}

	metrics.RecordFunds("withdrawal", string(models.FundsPending))
	log.Infof("withdrawal %s of %d via %s submitted by user %s", w.ID.Hex(), w.WithdrawalAmount, w.PaymentMode, userID.Hex())
	return w, nil
}

// ApproveWithdrawal only marks the request; the money left the balance on submission.
func (s *FundsService) ApproveWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	id, err := objectID(withdrawalID, "Withdrawal request not found")
	if err != nil {
		return nil, err
	}

	w, err := s.withdrawals.Transition(ctx, id, models.FundsApproved, s.clock.Time())
	if err != nil {
		return nil, fundsError(err, "Withdrawal request not found", msgWithdrawalProcessed)
	}

	metrics.RecordFunds("withdrawal", string(models.FundsApproved))
	log.Infof("withdrawal %s approved", w.ID.Hex())
	return w, nil
}

// RejectWithdrawal marks the request rejected and refunds the reserved amount.
func (s *FundsService) RejectWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	id, err := objectID(withdrawalID, "Withdrawal request not found")
	if err != nil {
		return nil, err
	}

	var withdrawal *models.Withdrawal
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		w, err := s.withdrawals.Transition(ctx, id, models.FundsRejected, s.clock.Time())
		if err != nil {
			return err
		}
		if _, err := s.users.Credit(ctx, w.UserID, w.WithdrawalAmount); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Missing("User not found")
			}
			if !s.tx.Atomic() {
				log.Errorf("withdrawal %s rejected but refund of %d to user %s failed: %v",
					w.ID.Hex(), w.WithdrawalAmount, w.UserID.Hex(), err)
			}
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, fundsError(err, "Withdrawal request not found", msgWithdrawalProcessed)
	}

	metrics.RecordFunds("withdrawal", string(models.FundsRejected))
	log.Infof("withdrawal %s rejected, user %s refunded %d", withdrawal.ID.Hex(), withdrawal.UserID.Hex(), withdrawal.WithdrawalAmount)
	return withdrawal, nil
}

func (s *FundsService) ListPendingWithdrawals(ctx context.Context) ([]*models.Withdrawal, error) {
	ws, err := s.withdrawals.ListByStatus(ctx, models.FundsPending)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return ws, nil
}

func fundsError(err error, notFoundMsg, processedMsg string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrNotPending):
		return apperr.Conflicts(processedMsg)
	case errors.Is(err, store.ErrNotFound):
		return apperr.Missing(notFoundMsg)
	}
	return apperr.Unexpected(err)
}
