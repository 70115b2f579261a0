package user

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"electroCare/domain"
	"electroCare/pkg/logger"
	"electroCare/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pobyzaarif/goshortcute"
)

// UserRepository contract interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id uint, role string) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	UpdateEmailVerification(ctx context.Context, id uint, isVerified bool) error
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	FindByUserID(ctx context.Context, userID uint) (domain.Wallet, error)
	FindByUserIDForUpdate(ctx context.Context, userID uint) (domain.Wallet, error)
	Update(ctx context.Context, wallet *domain.Wallet) error
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
}

type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.Referral) error
	FindPendingByReferredForUpdate(ctx context.Context, referredID uint) (domain.Referral, error)
	Complete(ctx context.Context, id uint, points int64, at time.Time) error
}

type TokenRepository interface {
	StoreToken(ctx context.Context, userID, token string, ttl time.Duration) error
	ValidateToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, userID, token string) error
}

// NotificationRepository contract interface
type NotificationRepository interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, message string) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type userService struct {
	userRepo                UserRepository
	walletRepo              WalletRepository
	referralRepo            ReferralRepository
	tokenRepo               TokenRepository
	notifRepo               NotificationRepository
	tx                      Transactor
	validate                *validator.Validate
	appEmailVerificationKey string
	appDeploymentUrl        string
	now                     func() time.Time
}

const (
	verificationCodeTTL  = 5
	resetCodeTTL         = 15
	resetCodeFingerprint = 12

	SubjectRegisterAccount   = "Activate your ElectroCare account"
	EmailBodyRegisterAccount = `Hi %v, activate your account by opening the link below</br></br>%v</br>note: the link is valid for %v minutes`
	SubjectResetPassword     = "Reset your ElectroCare password"
	EmailBodyResetPassword   = `Hi %v, use the code below to reset your password</br></br>%v</br>note: the code is valid for %v minutes`
)

var (
	errInvalidLink  = fmt.Errorf("invalid or expired url: %w", domain.ErrUnauthorized)
	errInvalidReset = fmt.Errorf("invalid or expired reset code: %w", domain.ErrUnauthorized)
	errCredentials  = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
)

type Config struct {
	AppEmailVerificationKey string
	AppDeploymentUrl        string
}

func NewUserService(
	userRepo UserRepository,
	walletRepo WalletRepository,
	referralRepo ReferralRepository,
	tokenRepo TokenRepository,
	notifRepo NotificationRepository,
	tx Transactor,
	validate *validator.Validate,
	cfg Config,
) *userService {
	return &userService{
		userRepo:                userRepo,
		walletRepo:              walletRepo,
		referralRepo:            referralRepo,
		tokenRepo:               tokenRepo,
		notifRepo:               notifRepo,
		tx:                      tx,
		validate:                validate,
		appEmailVerificationKey: cfg.AppEmailVerificationKey,
		appDeploymentUrl:        cfg.AppDeploymentUrl,
		now:                     time.Now,
	}
}

type RegisterInput struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	ReferralCode string
}

// Register creates the user, their wallet and an optional pending referral
// in one transaction, then emails a verification link. A failed email does
// not fail registration.
func (s *userService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if err := s.validate.Var(in.Email, "required,email"); err != nil {
		logger.Error("Invalid email format", err)
		return domain.User{}, fmt.Errorf("invalid email format: %w", domain.ErrInvalidInput)
	}

	if err := s.validate.Var(in.Password, "required,min=6"); err != nil {
		logger.Error("Invalid user password", err)
		return domain.User{}, fmt.Errorf("password must be at least 6 characters: %w", domain.ErrInvalidInput)
	}

	if strings.TrimSpace(in.Name) == "" {
		return domain.User{}, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil && existing.ID > 0 {
		logger.Error("Email already exists")
		return domain.User{}, fmt.Errorf("email already exists: %w", domain.ErrConflict)
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return domain.User{}, errors.New("failed to hash password")
	}

	newUser := domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        in.Phone,
		Password:     string(passwordHash),
		Role:         domain.RoleUser,
		IsVerified:   false,
		ReferralCode: newReferralCode(),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, &newUser); err != nil {
			return err
		}

		if err := s.walletRepo.Create(ctx, &domain.Wallet{UserID: newUser.ID}); err != nil {
			return err
		}

		if in.ReferralCode == "" {
			return nil
		}

		referrer, err := s.userRepo.FindByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(in.ReferralCode)))
		if err != nil {
			logger.Warn("Ignoring unknown referral code", "code", in.ReferralCode)
			return nil
		}

		return s.referralRepo.Create(ctx, &domain.Referral{
			ReferrerID: referrer.ID,
			ReferredID: newUser.ID,
			Status:     domain.ReferralPending,
		})
	})
	if err != nil {
		logger.Error("Failed to create new user", err)
		return domain.User{}, err
	}

	code, err := s.encryptCode(fmt.Sprintf("%v|%v", newUser.Email, s.now().Add(verificationCodeTTL*time.Minute).Unix()))
	if err != nil {
		logger.Error("Failed to encrypt verification code", err)
		return newUser, nil
	}
	activationLink := s.appDeploymentUrl + "/api/auth/email-verification/" + code

	err = s.notifRepo.SendEmail(ctx, newUser.Name, newUser.Email, SubjectRegisterAccount,
		fmt.Sprintf(EmailBodyRegisterAccount, newUser.Name, activationLink, verificationCodeTTL))
	if err != nil {
		logger.Warn("Failed to send verification email", err)
	}

	return newUser, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		logger.Error("Invalid user credentials", err)
		return "", domain.User{}, errCredentials
	}

	if !utils.CheckPassword(password, user.Password) {
		logger.Error("User password incorrect", "user_id", user.ID)
		return "", domain.User{}, errCredentials
	}

	if !user.IsVerified {
		return "", domain.User{}, fmt.Errorf("email address has not been verified: %w", domain.ErrForbidden)
	}

	userID := strconv.FormatUint(uint64(user.ID), 10)
	token, err := utils.GenerateJWT(userID, user.Role)
	if err != nil {
		logger.Error("Failed to generate token", err)
		return "", domain.User{}, errors.New("failed to generate token")
	}

	if err := s.tokenRepo.StoreToken(ctx, userID, token, utils.JWTTTL()); err != nil {
		logger.Error("Failed to store session", err)
		return "", domain.User{}, err
	}

	return token, user, nil
}

func (s *userService) Logout(ctx context.Context, userID uint, token string) error {
	return s.tokenRepo.DeleteToken(ctx, strconv.FormatUint(uint64(userID), 10), token)
}

// VerifyEmail marks the account verified and, when the user was referred,
// credits the referrer's wallet in the same transaction.
func (s *userService) VerifyEmail(ctx context.Context, code string) error {
	parts, err := s.decryptCode(code, 2)
	if err != nil {
		logger.Error("Verifying email error", err)
		return errInvalidLink
	}

	if err := s.checkExpiry(parts[1]); err != nil {
		return errInvalidLink
	}

	user, err := s.userRepo.FindByEmail(ctx, parts[0])
	if err != nil {
		logger.Error("Verifying email error", err)
		return errInvalidLink
	}

	if user.IsVerified {
		logger.Warn("Email verified already", "user_id", user.ID)
		return errInvalidLink
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdateEmailVerification(ctx, user.ID, true); err != nil {
			return err
		}

		return s.completeReferral(ctx, user)
	})
}

func (s *userService) completeReferral(ctx context.Context, referred domain.User) error {
	referral, err := s.referralRepo.FindPendingByReferredForUpdate(ctx, referred.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, referral.ReferrerID)
	if errors.Is(err, domain.ErrNotFound) {
		wallet = domain.Wallet{UserID: referral.ReferrerID}
		err = s.walletRepo.Create(ctx, &wallet)
	}
	if err != nil {
		return err
	}

	wallet.Points += domain.ReferralBonusPoints
	if err := s.walletRepo.Update(ctx, &wallet); err != nil {
		return err
	}

	err = s.walletRepo.CreateTransaction(ctx, &domain.Transaction{
		WalletID:    wallet.ID,
		UserID:      wallet.UserID,
		Type:        domain.TransactionReferralBonus,
		Points:      domain.ReferralBonusPoints,
		Description: fmt.Sprintf("+%d points for referring %s", domain.ReferralBonusPoints, referred.Name),
	})
	if err != nil {
		return err
	}

	return s.referralRepo.Complete(ctx, referral.ID, domain.ReferralBonusPoints, s.now())
}

// ForgotPassword emails a reset code when the account exists. Callers get
// the same result either way.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		logger.Info("Password reset requested for unknown email")
		return nil
	}

	code, err := s.encryptCode(fmt.Sprintf("%v|%v|%v",
		user.Email, s.now().Add(resetCodeTTL*time.Minute).Unix(), fingerprint(user.Password)))
	if err != nil {
		logger.Error("Failed to encrypt reset code", err)
		return err
	}

	err = s.notifRepo.SendEmail(ctx, user.Name, user.Email, SubjectResetPassword,
		fmt.Sprintf(EmailBodyResetPassword, user.Name, code, resetCodeTTL))
	if err != nil {
		logger.Warn("Failed to send reset password email", err)
	}

	return nil
}

// ResetPassword consumes a reset code. The code embeds a fingerprint of the
// old hash, so it stops working once the password changes.
func (s *userService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := s.validate.Var(newPassword, "required,min=6"); err != nil {
		return fmt.Errorf("password must be at least 6 characters: %w", domain.ErrInvalidInput)
	}

	parts, err := s.decryptCode(code, 3)
	if err != nil {
		logger.Error("Reset password error", err)
		return errInvalidReset
	}

	if err := s.checkExpiry(parts[1]); err != nil {
		return errInvalidReset
	}

	user, err := s.userRepo.FindByEmail(ctx, parts[0])
	if err != nil || fingerprint(user.Password) != parts[2] {
		return errInvalidReset
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return errors.New("failed to hash password")
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *userService) Me(ctx context.Context, userID uint) (domain.UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.UserProfile{}, err
	}

	return domain.UserProfile{User: user, Wallet: wallet}, nil
}

// GetAllUsers retrieves all users
func (s *userService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to get all users", err)
		return nil, err
	}

	return users, nil
}

func (s *userService) UpdateRole(ctx context.Context, userID uint, role string) (domain.User, error) {
	if !domain.IsValidRole(role) {
		return domain.User{}, fmt.Errorf("invalid role %q: %w", role, domain.ErrInvalidInput)
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		logger.Error("Failed to update user role", err)
		return domain.User{}, err
	}

	return s.userRepo.FindByID(ctx, userID)
}

func (s *userService) encryptCode(plain string) (string, error) {
	encrypted, err := goshortcute.AESCBCEncrypt([]byte(plain), []byte(s.appEmailVerificationKey))
	if err != nil {
		return "", err
	}

	// Codes travel in URL paths, so they use the URL-safe alphabet.
	return base64.RawURLEncoding.EncodeToString([]byte(encrypted)), nil
}

func (s *userService) decryptCode(code string, fields int) ([]string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return nil, err
	}

	plain, err := goshortcute.AESCBCDecrypt(decoded, []byte(s.appEmailVerificationKey))
	if err != nil {
		return nil, err
	}

	parts := strings.Split(plain, "|")
	if len(parts) != fields {
		return nil, fmt.Errorf("malformed code with %d fields", len(parts))
	}

	return parts, nil
}

func (s *userService) checkExpiry(unix string) error {
	ts, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return err
	}

	if s.now().After(time.Unix(ts, 0)) {
		return errors.New("expired")
	}

	return nil
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func fingerprint(hash string) string {
	if len(hash) <= resetCodeFingerprint {
		return hash
	}

	return hash[len(hash)-resetCodeFingerprint:]
}
