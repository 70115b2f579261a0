package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"electroCare/domain"
	"electroCare/internal/repository/memory"
	"electroCare/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendEmail(ctx context.Context, toName, toEmail, subject, message string) error {
	args := m.Called(ctx, toName, toEmail, subject, message)
	return args.Error(0)
}

type fixture struct {
	svc      *userService
	store    *memory.Store
	notifier *mockNotifier
	sent     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	utils.SetJWTConfig("test-secret", time.Hour)

	f := &fixture{store: memory.NewStore(), notifier: &mockNotifier{}}
	f.notifier.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { f.sent = append(f.sent, args.String(4)) }).
		Return(nil)

	f.svc = NewUserService(
		f.store.Users(),
		f.store.Wallets(),
		f.store.Referrals(),
		f.store.Tokens(),
		f.notifier,
		f.store.Transactor(),
		validator.New(),
		Config{AppEmailVerificationKey: "0123456789abcdef", AppDeploymentUrl: "http://localhost:8080"},
	)

	return f
}

func (f *fixture) lastVerificationCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)

	body := f.sent[len(f.sent)-1]
	_, after, ok := strings.Cut(body, "/api/auth/email-verification/")
	require.True(t, ok, "verification link missing from %q", body)
	code, _, _ := strings.Cut(after, "</br>")

	return code
}

func (f *fixture) lastResetCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)

	parts := strings.Split(f.sent[len(f.sent)-1], "</br>")
	require.GreaterOrEqual(t, len(parts), 3)

	return parts[2]
}

func (f *fixture) registerVerified(t *testing.T, in RegisterInput) domain.User {
	t.Helper()

	u, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(context.Background(), f.lastVerificationCode(t)))

	return u
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and wallet", func(t *testing.T) {
		f := newFixture(t)

		u, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: " Ann@Example.com ", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", u.Email)
		assert.Equal(t, domain.RoleUser, u.Role)
		assert.False(t, u.IsVerified)
		assert.Len(t, u.ReferralCode, 8)
		assert.NotEqual(t, "secret1", u.Password)

		wallet, err := f.store.Wallets().FindByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.IsZero())
		assert.Len(t, f.sent, 1)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ANN@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "not-an-email", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "123"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.Register(ctx, RegisterInput{Name: " ", Email: "ann@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("email failure does not fail registration", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.ExpectedCalls = nil
		f.notifier.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down"))

		u, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.NotZero(t, u.ID)
	})

	t.Run("unknown referral code is ignored", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1", ReferralCode: "NOPE"})
		require.NoError(t, err)
		assert.Empty(t, f.store.Referrals().All())
	})
}

func TestVerifyEmailCompletesReferral(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	referrer := f.registerVerified(t, RegisterInput{Name: "Ref", Email: "ref@example.com", Password: "secret1"})

	referred, err := f.svc.Register(ctx, RegisterInput{
		Name: "New", Email: "new@example.com", Password: "secret1",
		ReferralCode: strings.ToLower(referrer.ReferralCode),
	})
	require.NoError(t, err)

	refs := f.store.Referrals().All()
	require.Len(t, refs, 1)
	assert.Equal(t, domain.ReferralPending, refs[0].Status)

	code := f.lastVerificationCode(t)
	require.NoError(t, f.svc.VerifyEmail(ctx, code))

	got, err := f.store.Users().FindByID(ctx, referred.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	wallet, err := f.store.Wallets().FindByUserID(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.ReferralBonusPoints), wallet.Points)

	txs, err := f.store.Wallets().ListTransactions(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionReferralBonus, txs[0].Type)
	assert.Equal(t, int64(domain.ReferralBonusPoints), txs[0].Points)
	assert.True(t, txs[0].Amount.IsZero())

	refs = f.store.Referrals().All()
	assert.Equal(t, domain.ReferralCompleted, refs[0].Status)

	// The link is single use.
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, code), domain.ErrUnauthorized)
}

func TestVerifyEmailRejectsBadCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.lastVerificationCode(t)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "not base64!"), domain.ErrUnauthorized)

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, code), domain.ErrUnauthorized)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrForbidden, "unverified users cannot log in")

	require.NoError(t, f.svc.VerifyEmail(ctx, f.lastVerificationCode(t)))

	_, _, err = f.svc.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	token, u, err := f.svc.Login(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := utils.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, claims.Role)

	uid, err := f.store.Tokens().ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, uid)

	require.NoError(t, f.svc.Logout(ctx, u.ID, token))
	_, err = f.store.Tokens().ValidateToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})

	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	sentBefore := len(f.sent)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ann@example.com"))
	require.Len(t, f.sent, sentBefore+1)
	code := f.lastResetCode(t)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, code, "123"), domain.ErrInvalidInput)
	require.NoError(t, f.svc.ResetPassword(ctx, code, "newsecret"))

	_, _, err := f.svc.Login(ctx, "ann@example.com", "newsecret")
	require.NoError(t, err)

	// The old hash fingerprint no longer matches.
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, code, "another1"), domain.ErrUnauthorized)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.registerVerified(t, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})

	_, err := f.svc.UpdateRole(ctx, u.ID, "wizard")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := f.svc.UpdateRole(ctx, u.ID, domain.RoleShop)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleShop, got.Role)

	profile, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleShop, profile.User.Role)
	assert.Equal(t, u.ID, profile.Wallet.UserID)
}
