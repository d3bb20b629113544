package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"flowtrack/internal/auth/password"
	"flowtrack/internal/auth/repository"
	"flowtrack/platform/apperr"
	"flowtrack/platform/config"
	"flowtrack/platform/logger"
)

const accessTokenType = "access"

type Service struct {
	repo repository.UserStore
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

func New(repo repository.UserStore, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// SignUp registers a new account and returns an access token.
func (s *Service) SignUp(ctx context.Context, email, plainPassword, name string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return "", err
	}

	user, err := s.repo.CreateUser(ctx, email, hash, name)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		s.log.AuthEvent("signup", email, false, "duplicate email")
		return "", apperr.Conflict("email already registered")
	}
	if err != nil {
		return "", err
	}

	s.log.AuthEvent("signup", email, true, "")
	return s.signAccessToken(user.ID, user.Email)
}

// SignIn verifies credentials and returns an access token. Repository and
// password failures collapse into one error so the response does not reveal
// which accounts exist.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("signin", email, false, "unknown email")
		return "", apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("signin", email, false, "wrong password")
		return "", apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("signin", email, true, "")
	return s.signAccessToken(user.ID, user.Email)
}

// Profile returns the account behind an authenticated user ID.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return user, err
}

func (s *Service) signAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"type":  accessTokenType,
		"exp":   now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
