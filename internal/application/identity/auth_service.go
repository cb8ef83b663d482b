// Package identity implements registration, login and token rotation.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/identity"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Errors returned to clients. Login failures never reveal whether the name exists.
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid name or password")
	ErrNameTaken          = shared.NewDomainError("ALREADY_EXISTS", "Name is already registered")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	tokenRepo  identity.RefreshTokenRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	tokenRepo identity.RefreshTokenRepository,
	jwtService *auth.JWTService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a new account
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNameTaken
	}

	user, err := identity.NewUser(input.Name, input.Age, input.Password)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	info := toUserInfo(user)
	return &info, nil
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByName(ctx, input.Name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown user", zap.String("name", input.Name))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	user.RecordLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return &LoginResult{TokenResult: *tokens, User: toUserInfo(user)}, nil
}

// Refresh exchanges an active refresh token for a new pair and revokes the old one.
// Presenting a token that was already revoked revokes every grant of its user.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	tokenID, err := claims.GetTokenUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	grant, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if grant.UserID != userID {
		return nil, ErrTokenInvalid
	}
	if !grant.IsActive(s.now()) {
		if grant.RevokedAt != nil {
			s.logger.Warn("Revoked refresh token reused, revoking all sessions",
				zap.String("user_id", userID.String()))
			if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
				s.logger.Error("Failed to revoke sessions", zap.Error(err))
			}
			return nil, ErrTokenInvalid
		}
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if err := s.tokenRepo.Revoke(ctx, grant.ID); err != nil {
		return nil, err
	}
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token refreshed", zap.String("user_id", userID.String()))
	return tokens, nil
}

// Logout revokes the given refresh token, or all of the user's grants when none is given.
// Tokens of other users and unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.RefreshToken == "" {
		s.logger.Info("User logout (all sessions)", zap.String("user_id", input.UserID.String()))
		return s.tokenRepo.RevokeAllForUser(ctx, input.UserID)
	}

	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil
		}
		return ErrTokenInvalid
	}
	if claims.UserID != input.UserID.String() {
		return nil
	}
	tokenID, err := claims.GetTokenUUID()
	if err != nil {
		return ErrTokenInvalid
	}

	s.logger.Info("User logout", zap.String("user_id", input.UserID.String()))
	return s.tokenRepo.Revoke(ctx, tokenID)
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// issueTokens signs a new pair and persists the refresh grant
func (s *AuthService) issueTokens(ctx context.Context, user *identity.User) (*TokenResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(user.ID, user.Name)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	grant, err := identity.NewRefreshToken(pair.RefreshTokenID, user.ID, pair.RefreshTokenExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Create(ctx, grant); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Error(err))
		return nil, err
	}

	return &TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}
