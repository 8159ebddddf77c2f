package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
	"github.com/xlzd/gotp"
	"golang.org/x/crypto/bcrypt"
)

const (
	usernameAttempts = 3
	emailDomain      = "1to9games.com"
)

type OTPPolicy struct {
	TTL         time.Duration
	MaxAttempts int
	PhonePrefix string
}

// UserService covers registration, login and password reset for players, plus
// the account views the dashboard reads.
type UserService struct {
	users       UserRepository
	otps        OTPRepository
	bets        BetRepository
	deposits    DepositRepository
	withdrawals WithdrawalRepository
	sms         SMSSender
	clock       *gameday.Clock
	policy      OTPPolicy
}

func NewUserService(users UserRepository, otps OTPRepository, bets BetRepository, deposits DepositRepository,
	withdrawals WithdrawalRepository, sms SMSSender, clock *gameday.Clock, policy OTPPolicy) *UserService {
	return &UserService{
		users:       users,
		otps:        otps,
		bets:        bets,
		deposits:    deposits,
		withdrawals: withdrawals,
		sms:         sms,
		clock:       clock,
		policy:      policy,
	}
}

// NormalizePhone adds the country prefix to numbers given without one.
func (s *UserService) NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return s.policy.PhonePrefix + phone
}

// Register starts a sign-up: the account is created only once the code sent to
// phone is verified.
func (s *UserService) Register(ctx context.Context, name, phone, password string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(phone) == "" || password == "" {
		return apperr.Invalid("All fields are required")
	}
	phone = s.NormalizePhone(phone)

	_, err := s.users.GetByPhone(ctx, phone)
	if err == nil {
		return apperr.Conflicts("Phone number already registered")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return apperr.Unexpected(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Unexpected(err)
	}

	pending := &models.PendingRegistration{Name: name, Phone: phone, PasswordHash: string(hash)}
	return s.issueOTP(ctx, models.OTPRegister, phone, pending)
}

// VerifyOTP completes a registration and returns the new user.
func (s *UserService) VerifyOTP(ctx context.Context, phone, code string) (*models.User, error) {
	phone = s.NormalizePhone(phone)
	otp, err := s.checkOTP(ctx, models.OTPRegister, phone, code)
	if err != nil {
		return nil, err
	}
	if otp.Pending == nil {
		return nil, apperr.Unexpected(fmt.Errorf("otp %s has no pending registration", otp.Key))
	}

	user, err := s.createUser(ctx, otp.Pending)
	if err != nil {
		return nil, err
	}

	if err := s.otps.Delete(ctx, otp.Key); err != nil {
		log.Warnf("verify otp: %v", err)
	}
	log.Infof("user %s registered as %s", user.ID.Hex(), user.Username)
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, p *models.PendingRegistration) (*models.User, error) {
	var err error
	for i := 0; i < usernameAttempts; i++ {
		now := s.clock.Time()
		handle := "user_" + strings.ToLower(gotp.RandomSecret(9))
		user := &models.User{
			Username:  handle,
			Email:     handle + "@" + emailDomain,
			Name:      p.Name,
			Phone:     p.Phone,
			Password:  p.PasswordHash,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Unexpected(err)
		}
		// either the phone registered meanwhile or the generated handle collided
		if _, perr := s.users.GetByPhone(ctx, p.Phone); perr == nil {
			return nil, apperr.Conflicts("Phone number already registered")
		}
	}
	return nil, apperr.Unexpected(err)
}

// Login checks a phone and password pair. Both failure causes share one message.
func (s *UserService) Login(ctx context.Context, phone, password string) (*models.User, error) {
	invalid := apperr.Invalid("Invalid phone number or password")
	if strings.TrimSpace(phone) == "" || password == "" {
		return nil, invalid
	}

	user, err := s.users.GetByPhone(ctx, s.NormalizePhone(phone))
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

// SendResetOTP sends a password reset code to a registered phone.
func (s *UserService) SendResetOTP(ctx context.Context, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return apperr.Invalid("Phone number is required")
	}
	phone = s.NormalizePhone(phone)

	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		return notFoundOr(err, "User not found")
	}
	return s.issueOTP(ctx, models.OTPReset, phone, nil)
}

func (s *UserService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	if strings.TrimSpace(phone) == "" || newPassword == "" {
		return apperr.Invalid("All fields are required")
	}
	phone = s.NormalizePhone(phone)

	otp, err := s.checkOTP(ctx, models.OTPReset, phone, code)
	if err != nil {
		return err
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if err := s.users.SetPassword(ctx, user.ID, string(hash)); err != nil {
		return notFoundOr(err, "User not found")
	}

	if err := s.otps.Delete(ctx, otp.Key); err != nil {
		log.Warnf("reset password: %v", err)
	}
	log.Infof("password reset for user %s", user.ID.Hex())
	return nil
}

// issueOTP stores a fresh HOTP secret for (purpose, phone) and texts the code.
func (s *UserService) issueOTP(ctx context.Context, purpose models.OTPPurpose, phone string, pending *models.PendingRegistration) error {
	secret := gotp.RandomSecret(16)
	code := gotp.NewDefaultHOTP(secret).At(0)

	now := s.clock.Time()
	otp := &models.OTP{
		Key:       models.OTPKey(purpose, phone),
		Phone:     phone,
		Purpose:   purpose,
		Secret:    secret,
		Pending:   pending,
		ExpiresAt: now.Add(s.policy.TTL),
		CreatedAt: now,
	}
	if err := s.otps.Save(ctx, otp); err != nil {
		return apperr.Unexpected(err)
	}

	if err := s.sms.Send(ctx, phone, fmt.Sprintf("Your OTP code is %s", code)); err != nil {
		if derr := s.otps.Delete(ctx, otp.Key); derr != nil {
			log.Warnf("issue otp: %v", derr)
		}
		return apperr.Unexpected(fmt.Errorf("send otp to %s: %w", phone, err))
	}
	return nil
}

// checkOTP validates code against the stored entry. Expired entries and entries
// that ran out of attempts are removed.
func (s *UserService) checkOTP(ctx context.Context, purpose models.OTPPurpose, phone, code string) (*models.OTP, error) {
	key := models.OTPKey(purpose, phone)

	otp, err := s.otps.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Invalid("No OTP found. Please request a new one")
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if s.clock.Time().After(otp.ExpiresAt) {
		s.dropOTP(ctx, key)
		return nil, apperr.Invalid("OTP has expired")
	}
	if otp.Attempts >= s.policy.MaxAttempts {
		s.dropOTP(ctx, key)
		return nil, apperr.Invalid("Too many attempts. Please request a new one")
	}

	if !gotp.NewDefaultHOTP(otp.Secret).Verify(strings.TrimSpace(code), 0) {
		if _, err := s.otps.IncrementAttempts(ctx, key); err != nil {
			log.Warnf("check otp: %v", err)
		}
		return nil, apperr.Invalid("Invalid OTP")
	}
	return otp, nil
}

func (s *UserService) dropOTP(ctx context.Context, key string) {
	if err := s.otps.Delete(ctx, key); err != nil {
		log.Warnf("drop otp %s: %v", key, err)
	}
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := objectID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *UserService) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := user.Stats()
	return &stats, nil
}

// TransactionDetails gathers the user with all of their withdrawals, deposits and bets.
func (s *UserService) TransactionDetails(ctx context.Context, userID string) (*models.TransactionDetails, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	withdrawals, err := s.withdrawals.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	deposits, err := s.deposits.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	bets, err := s.bets.List(ctx, &user.ID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	return &models.TransactionDetails{
		User:        user,
		Withdrawals: withdrawals,
		Deposits:    deposits,
		Bets:        bets,
	}, nil
}
