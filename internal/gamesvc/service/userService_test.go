package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const badCode = "abcdef"

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()

	require.NoError(t, svc.Register(ctx, "Asha", "98000 00001", "s3cret"))
	code := f.sms.LastCode("+919800000001")
	require.Len(t, code, 6)
	assert.Equal(t, "Your OTP code is "+code, f.sms.Sent["+919800000001"][0])

	_, err := f.users.GetByPhone(ctx, "+919800000001")
	assert.Error(t, err, "no account before verification")

	user, err := svc.VerifyOTP(ctx, "9800000001", code)
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, "+919800000001", user.Phone)
	assert.True(t, strings.HasPrefix(user.Username, "user_"))
	assert.Equal(t, user.Username+"@1to9games.com", user.Email)
	assert.Zero(t, user.Balance)
	assert.NotEqual(t, "s3cret", user.Password)

	_, err = svc.VerifyOTP(ctx, "9800000001", code)
	assert.Equal(t, "No OTP found. Please request a new one", apperr.Message(err))

	logged, err := svc.Login(ctx, "+919800000001", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestRegisterRejectsKnownPhone(t *testing.T) {
	f := newFixture(t)
	f.users.Add("+919800000001", 0)

	err := f.userService().Register(context.Background(), "Asha", "9800000001", "pw")
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, "Phone number already registered", apperr.Message(err))
	assert.Empty(t, f.sms.Sent)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	f := newFixture(t)
	svc := f.userService()
	for _, in := range [][3]string{{"", "98", "pw"}, {"A", " ", "pw"}, {"A", "98", ""}} {
		err := svc.Register(context.Background(), in[0], in[1], in[2])
		assert.Equal(t, "All fields are required", apperr.Message(err))
	}
}

func TestRegisterDropsOTPWhenSMSFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sms.Err = errors.New("gateway down")

	err := f.userService().Register(ctx, "Asha", "9800000001", "pw")
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	_, err = f.otps.Get(ctx, models.OTPKey(models.OTPRegister, "+919800000001"))
	assert.Error(t, err)
}

func TestVerifyOTPLimitsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()
	require.NoError(t, svc.Register(ctx, "Asha", "9800000001", "pw"))
	code := f.sms.LastCode("+919800000001")

	for i := 0; i < 3; i++ {
		_, err := svc.VerifyOTP(ctx, "9800000001", badCode)
		assert.Equal(t, "Invalid OTP", apperr.Message(err))
	}

	_, err := svc.VerifyOTP(ctx, "9800000001", code)
	assert.Equal(t, "Too many attempts. Please request a new one", apperr.Message(err))

	_, err = svc.VerifyOTP(ctx, "9800000001", code)
	assert.Equal(t, "No OTP found. Please request a new one", apperr.Message(err))
}

func TestVerifyOTPExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()
	require.NoError(t, svc.Register(ctx, "Asha", "9800000001", "pw"))
	code := f.sms.LastCode("+919800000001")

	f.advance(5*time.Minute + time.Second)
	_, err := svc.VerifyOTP(ctx, "9800000001", code)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, "OTP has expired", apperr.Message(err))
}

func TestRegisterAgainReplacesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()
	require.NoError(t, svc.Register(ctx, "Asha", "9800000001", "first"))
	require.NoError(t, svc.Register(ctx, "Asha K", "9800000001", "second"))

	user, err := svc.VerifyOTP(ctx, "9800000001", f.sms.LastCode("+919800000001"))
	require.NoError(t, err)
	assert.Equal(t, "Asha K", user.Name)

	_, err = svc.Login(ctx, "9800000001", "second")
	assert.NoError(t, err)
}

func TestLoginFailuresShareMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()
	require.NoError(t, svc.Register(ctx, "Asha", "9800000001", "pw"))
	_, err := svc.VerifyOTP(ctx, "9800000001", f.sms.LastCode("+919800000001"))
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "9800000001", "nope")
	_, unknownPhone := svc.Login(ctx, "9800000002", "pw")
	for _, err := range []error{wrongPassword, unknownPhone} {
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		assert.Equal(t, "Invalid phone number or password", apperr.Message(err))
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.userService()
	require.NoError(t, svc.Register(ctx, "Asha", "9800000001", "old"))
	_, err := svc.VerifyOTP(ctx, "9800000001", f.sms.LastCode("+919800000001"))
	require.NoError(t, err)

	err = svc.SendResetOTP(ctx, "9800000002")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	require.NoError(t, svc.SendResetOTP(ctx, "9800000001"))
	code := f.sms.LastCode("+919800000001")

	err = svc.ResetPassword(ctx, "9800000001", badCode, "new")
	assert.Equal(t, "Invalid OTP", apperr.Message(err))

	require.NoError(t, svc.ResetPassword(ctx, "9800000001", code, "new"))

	_, err = svc.Login(ctx, "9800000001", "old")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "9800000001", "new")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, "9800000001", code, "again")
	assert.Equal(t, "No OTP found. Please request a new one", apperr.Message(err))
}

func TestTransactionDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedGame(t, "GAME01032024")
	user := f.users.Add("+919800000001", 1000)
	other := f.users.Add("+919800000002", 1000)

	f.placeBet(t, user, 1, 1, 100)
	f.placeBet(t, other, 1, 1, 100)
	_, err := f.fundsService().SubmitWithdrawal(ctx, upiWithdrawal(user, 200))
	require.NoError(t, err)
	_, err = f.fundsService().SubmitDeposit(ctx, service.DepositInput{
		UserID: user.ID.Hex(), DepositAmount: 50, TransactionID: "UTR9", ProofImgURL: "p.png",
	})
	require.NoError(t, err)

	svc := f.userService()
	details, err := svc.TransactionDetails(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 700, details.User.Balance)
	assert.Len(t, details.Bets, 1)
	assert.Len(t, details.Withdrawals, 1)
	assert.Len(t, details.Deposits, 1)

	stats, err := svc.UserStats(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, user.ID, stats.ID)
	assert.EqualValues(t, 700, stats.Balance)

	_, err = svc.GetUser(ctx, "not-an-id")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
