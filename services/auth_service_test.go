package services

import (
	"log/slog"
	"testing"
	"time"

	"market-live/auth"
	"market-live/domain"
	"market-live/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	byEmail map[string]domain.Account
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: map[string]domain.Account{}}
}

func (r *memUserRepo) CreateUser(email, hashedPassword string) (string, error) {
	if _, exists := r.byEmail[email]; exists {
		return "", errors.ErrUserAlreadyExists
	}
	id := uuid.New().String()
	r.byEmail[email] = domain.Account{
		ID:           id,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}
	return id, nil
}

func (r *memUserRepo) GetUserByEmail(email string) (domain.Account, error) {
	account, exists := r.byEmail[email]
	if !exists {
		return domain.Account{}, errors.ErrInvalidCredentials
	}
	return account, nil
}

func newAuthFixture() (*AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager([]byte("unit-test-signing-key"), "market-live", time.Hour)
	return NewAuthService(slog.Default(), newMemUserRepo(), tokens), tokens
}

func Test_Register_Then_Login(t *testing.T) {
	req := require.New(t)
	service, tokens := newAuthFixture()

	// Given a registered user
	id, err := service.Register(auth.RegisterRequest{
		Email:    "Alice@Campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.NoError(err)
	req.NotEmpty(id)

	// When logging in with the same credentials, email case folded
	token, err := service.Login(auth.LoginRequest{
		Email:    "alice@campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.NoError(err)

	// Then the token resolves to the registered user
	user, ok := tokens.Resolve(token)
	req.True(ok)
	req.Equal(domain.UserID(id), user)
}

func Test_Register_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture()

	_, err := service.Register(auth.RegisterRequest{
		Email:    "alice@campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.NoError(err)

	_, err = service.Register(auth.RegisterRequest{
		Email:    "alice@campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Register_Weak_Password(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture()

	_, err := service.Register(auth.RegisterRequest{
		Email:    "alice@campus.edu",
		Password: "weakpasswordonly",
	})
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func Test_Login_Wrong_Password(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture()

	_, err := service.Register(auth.RegisterRequest{
		Email:    "alice@campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.NoError(err)

	_, err = service.Login(auth.LoginRequest{
		Email:    "alice@campus.edu",
		Password: "Wr0ng&Secret!pass",
	})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Login_Unknown_Email(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture()

	_, err := service.Login(auth.LoginRequest{
		Email:    "nobody@campus.edu",
		Password: "Str0ng&Secret!pass",
	})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}
