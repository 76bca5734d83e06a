package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/mailer"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Mailer delivers outgoing email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// AuthConfig holds the token and one-time password settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

// AuthResult is returned by the operations that sign a user in.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthService handles registration, email verification, login and password reset.
type AuthService struct {
	userRepo  repositories.UserRepository
	mailer    Mailer
	jwtSecret []byte
	tokenTTL  time.Duration
	otpTTL    time.Duration

	now     func() time.Time
	newCode func() (string, error)
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, m Mailer, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &AuthService{
		userRepo:  userRepo,
		mailer:    m,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		otpTTL:    cfg.OTPTTL,
		now:       time.Now,
		newCode:   generateOTP,
	}
}

// Register creates an unverified account and emails it a verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" || in.Email == "" {
		return nil, invalid("name and email are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: %s", repositories.ErrEmailTaken, in.Email)
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: string(hashed),
		Phone:    in.Phone,
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	user.SetOTP(code, s.now().Add(s.otpTTL))

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	log.Info().Str("user_id", user.ID).Msg("user registered")

	if err := s.deliverOTP(ctx, user, mailer.PurposeVerify); err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// VerifyOTP marks the account verified when code matches the pending one.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.checkOTP(ctx, user, code); err != nil {
		return nil, err
	}

	user.IsVerified = true
	user.ClearOTP()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID).Msg("user verified")
	return s.signIn(user)
}

// ResendOTP issues a fresh verification code to an unverified account.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.issueOTP(ctx, user, mailer.PurposeVerify)
}

// Login checks the credentials and returns a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(user)
}

// ForgotPassword emails a password reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, user, mailer.PurposeReset)
}

// ResetPassword replaces the password when code matches the pending reset code.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkOTP(ctx, user, code); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ClearOTP()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// Authenticate resolves a bearer token to the live user record.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// GenerateToken signs an HS256 token carrying the user id.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its user id.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// checkOTP validates code against the user's pending one. An expired code is discarded.
func (s *AuthService) checkOTP(ctx context.Context, user *models.User, code string) error {
	if !user.HasOTP() {
		return ErrNoPendingOTP
	}
	if s.now().After(*user.OTPExpiresAt) {
		user.ClearOTP()
		if err := s.userRepo.Update(ctx, user); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("failed to clear expired otp")
		}
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(user.OTPCode), []byte(strings.TrimSpace(code))) != 1 {
		return ErrInvalidOTP
	}
	return nil
}

// issueOTP stores a fresh code for user and emails it.
func (s *AuthService) issueOTP(ctx context.Context, user *models.User, purpose mailer.Purpose) error {
	code, err := s.newCode()
	if err != nil {
		return err
	}
	user.SetOTP(code, s.now().Add(s.otpTTL))
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	return s.deliverOTP(ctx, user, purpose)
}

// deliverOTP emails the pending code. When sending fails the code is
// discarded so that nobody can use a code the owner never received.
func (s *AuthService) deliverOTP(ctx context.Context, user *models.User, purpose mailer.Purpose) error {
	msg, err := mailer.OTPMessage(user.Email, user.Name, user.OTPCode, purpose, s.otpTTL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("user_id", user.ID).Str("purpose", string(purpose)).Msg("failed to send otp email")
	user.ClearOTP()
	if clearErr := s.userRepo.Update(ctx, user); clearErr != nil {
		log.Error().Err(clearErr).Str("user_id", user.ID).Msg("failed to clear undelivered otp")
	}
	return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
