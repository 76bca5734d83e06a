package services_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

func newAuthService(repo *MockUserRepository, m *MockMailer) *services.AuthService {
	return services.NewAuthService(repo, m, services.AuthConfig{JWTSecret: testJWTSecret, TokenTTL: time.Hour, OTPTTL: 10 * time.Minute})
}

func pendingUser(t *testing.T, code string, expiresIn time.Duration) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{ID: "u1", Name: "Ana", Email: "a@x.com", Password: string(hashed)}
	u.SetOTP(code, time.Now().Add(expiresIn))
	return u
}

func TestAuthService_Register(t *testing.T) {
	repo := new(MockUserRepository)
	m := new(MockMailer)
	svc := newAuthService(repo, m)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "a@x.com").Return(nil, repositories.ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "u1"
	}).Return(nil).Once()
	m.On("Send", ctx, mock.Anything).Return(nil).Once()

	res, err := svc.Register(ctx, services.RegisterInput{Name: "Ana", Email: " A@x.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", res.User.Email)
	assert.False(t, res.User.IsVerified)
	assert.True(t, res.User.HasOTP())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.Password), []byte("secret1")))
	assert.NotEmpty(t, res.Token)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "a@x.com", m.sent[0].To)
	assert.Equal(t, res.User.OTPCode, otpPattern.FindString(m.sent[0].Text))

	userID, err := svc.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	repo.AssertExpectations(t)
	m.AssertExpectations(t)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newAuthService(repo, new(MockMailer))
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "a@x.com").Return(&models.User{ID: "u0"}, nil).Once()

	_, err := svc.Register(ctx, services.RegisterInput{Name: "Ana", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, repositories.ErrEmailTaken)
	assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthService(new(MockUserRepository), new(MockMailer))

	_, err := svc.Register(context.Background(), services.RegisterInput{Name: "Ana", Email: "a@x.com", Password: "123"})
	assert.ErrorIs(t, err, services.ErrWeakPassword)

	_, err = svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

func TestAuthService_Register_EmailFailureClearsOTP(t *testing.T) {
	repo := new(MockUserRepository)
	m := new(MockMailer)
	svc := newAuthService(repo, m)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "a@x.com").Return(nil, repositories.ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(nil).Once()
	m.On("Send", ctx, mock.Anything).Return(errors.New("smtp down")).Once()

	var cleared *models.User
	repo.On("Update", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		cleared = args.Get(1).(*models.User)
	}).Return(nil).Once()

	_, err := svc.Register(ctx, services.RegisterInput{Name: "Ana", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrEmailDelivery)
	assert.Equal(t, apperror.Upstream, apperror.KindOf(err))
	require.NotNil(t, cleared)
	assert.False(t, cleared.HasOTP())
	repo.AssertExpectations(t)
}

func TestAuthService_VerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code verifies", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newAuthService(repo, new(MockMailer))
		user := pendingUser(t, "123456", time.Minute)
		repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
		repo.On("Update", ctx, user).Return(nil).Once()

		res, err := svc.VerifyOTP(ctx, "a@x.com", "123456")
		require.NoError(t, err)
		assert.True(t, res.User.IsVerified)
		assert.False(t, res.User.HasOTP())
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong code keeps the otp", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newAuthService(repo, new(MockMailer))
		user := pendingUser(t, "123456", time.Minute)
		repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()

		_, err := svc.VerifyOTP(ctx, "a@x.com", "654321")
		assert.ErrorIs(t, err, services.ErrInvalidOTP)
		assert.True(t, user.HasOTP())
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("expired code is cleared", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newAuthService(repo, new(MockMailer))
		user := pendingUser(t, "123456", -time.Second)
		repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
		repo.On("Update", ctx, user).Return(nil).Once()

		_, err := svc.VerifyOTP(ctx, "a@x.com", "123456")
		assert.ErrorIs(t, err, services.ErrOTPExpired)
		assert.False(t, user.HasOTP())
		assert.False(t, user.IsVerified)
	})

	t.Run("no pending code", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newAuthService(repo, new(MockMailer))
		repo.On("GetByEmail", ctx, "a@x.com").Return(&models.User{ID: "u1"}, nil).Once()

		_, err := svc.VerifyOTP(ctx, "a@x.com", "123456")
		assert.ErrorIs(t, err, services.ErrNoPendingOTP)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newAuthService(repo, new(MockMailer))
		repo.On("GetByEmail", ctx, "b@x.com").Return(nil, repositories.ErrUserNotFound).Once()

		_, err := svc.VerifyOTP(ctx, "b@x.com", "123456")
		assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
	})
}

func TestAuthService_ResendOTP(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	m := new(MockMailer)
	svc := newAuthService(repo, m)

	user := pendingUser(t, "111111", time.Minute)
	repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
	repo.On("Update", ctx, user).Return(nil).Once()
	m.On("Send", ctx, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.ResendOTP(ctx, "a@x.com"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, user.OTPCode, otpPattern.FindString(m.sent[0].Text))

	verified := &models.User{ID: "u2", IsVerified: true}
	repo.On("GetByEmail", ctx, "v@x.com").Return(verified, nil).Once()
	assert.ErrorIs(t, svc.ResendOTP(ctx, "v@x.com"), services.ErrAlreadyVerified)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := newAuthService(repo, new(MockMailer))
	user := pendingUser(t, "", 0)

	repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
	repo.On("GetByEmail", ctx, "nobody@x.com").Return(nil, repositories.ErrUserNotFound)

	res, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	m := new(MockMailer)
	svc := newAuthService(repo, m)
	user := pendingUser(t, "", 0)
	user.ClearOTP()

	repo.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
	repo.On("Update", ctx, user).Return(nil)
	m.On("Send", ctx, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "Reset your password", m.sent[0].Subject)
	code := otpPattern.FindString(m.sent[0].Text)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@x.com", code, "short"), services.ErrWeakPassword)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@x.com", "000000x", "newsecret"), services.ErrInvalidOTP)
	require.NoError(t, svc.ResetPassword(ctx, "a@x.com", code, "newsecret"))

	assert.False(t, user.HasOTP())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("newsecret")))
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := newAuthService(repo, new(MockMailer))
	user := &models.User{ID: "u1"}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	repo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Same(t, user, got)

	repo.On("GetByID", ctx, "u1").Return(nil, repositories.ErrUserNotFound).Once()
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	svc := newAuthService(new(MockUserRepository), new(MockMailer))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	signed, err := expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = svc.ParseToken(signed)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"})
	signed, err = foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ParseToken(signed)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err = noUser.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = svc.ParseToken(signed)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}
