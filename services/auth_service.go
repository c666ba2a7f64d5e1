package services

import (
	"log/slog"
	"strings"

	"market-live/auth"
	"market-live/errors"
	"market-live/repositories"
)

type AuthService struct {
	log    *slog.Logger
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(log *slog.Logger, users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{log: log, users: users, tokens: tokens}
}

// Register validates the request, hashes the password and stores the
// account. It returns the new user ID.
func (a *AuthService) Register(req auth.RegisterRequest) (string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := auth.ValidateRegister(req); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", err
	}

	id, err := a.users.CreateUser(req.Email, hash)
	if err != nil {
		return "", err
	}
	a.log.Info("User registered", slog.String("user_id", id))
	return id, nil
}

// Login checks the credentials and issues a signed token. Unknown emails and
// wrong passwords both come back as ErrInvalidCredentials so the response
// does not leak which one failed.
func (a *AuthService) Login(req auth.LoginRequest) (string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := auth.ValidateLogin(req); err != nil {
		return "", err
	}

	account, err := a.users.GetUserByEmail(req.Email)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, account.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	return a.tokens.GenerateToken(account.ID, account.Roles)
}
