package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	LoadActor(ctx context.Context, userID int64) (*Actor, error)
}

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	accessTTL      int64
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen *JWTTokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		accessTTL:      int64(tokenGen.AccessTokenTTL.Seconds()),
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if err := validation.Struct(dto); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			s.logger.Warn("login attempt for unknown email", "email", dto.Email)
			return AuthTokens{}, internal.ErrInvalidCredentials
		}
		s.logger.Error("failed to load user for login", "error", err)
		return AuthTokens{}, internal.NewInternalError("failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login attempt with wrong password", "user_id", u.ID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if !u.IsActive {
		s.logger.Warn("login attempt by inactive user", "user_id", u.ID)
		return AuthTokens{}, internal.ErrUserInactive
	}

	tokens, err := s.issue(ActorFromDataModel(u))
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("user authenticated", "user_id", u.ID, "role", u.Role)
	return tokens, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if err := validation.Struct(RefreshTokenDTO{RefreshToken: refreshToken}); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := claims.ActorID()
	if err != nil {
		return AuthTokens{}, err
	}

	actor, err := s.LoadActor(ctx, userID)
	if err != nil {
		return AuthTokens{}, err
	}
	if !actor.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	return s.issue(actor)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// LoadActor reads the current role and department of userID. The token only
// identifies the user so role changes apply on the next request.
func (s *Service) LoadActor(ctx context.Context, userID int64) (*Actor, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken.WithCause(err)
		}
		s.logger.Error("failed to load actor", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return ActorFromDataModel(u), nil
}

func (s *Service) issue(actor *Actor) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(actor)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err, "user_id", actor.ID)
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(actor)
	if err != nil {
		s.logger.Error("failed to generate refresh token", "error", err, "user_id", actor.ID)
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL,
	}, nil
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
