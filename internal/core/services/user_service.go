package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/valutatrade/valutahub/internal/apperrors"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
	"github.com/valutatrade/valutahub/internal/utils"
)

const minPasswordLength = 4

// UserService handles registration and login. Registration also creates the
// user's empty portfolio, so every account owns exactly one portfolio from
// the start.
type UserService struct {
	userRepo      ports.UserRepository
	portfolioRepo ports.PortfolioRepository
	jwtSecret     string
	jwtExpiry     time.Duration
	jwtIssuer     string
	logger        *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo ports.UserRepository,
	portfolioRepo ports.PortfolioRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
	jwtIssuer string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:      userRepo,
		portfolioRepo: portfolioRepo,
		jwtSecret:     jwtSecret,
		jwtExpiry:     jwtExpiry,
		jwtIssuer:     jwtIssuer,
		logger:        logger,
	}
}

// Register creates a new user with a bcrypt password hash and an empty portfolio.
func (s *UserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", apperrors.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}

	if _, err := s.userRepo.FindUserByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrDuplicate, username)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.portfolioRepo.CreatePortfolio(ctx, domain.Portfolio{
		UserID:    user.UserID,
		Wallets:   domain.Wallet{},
		UpdatedAt: user.CreatedAt,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.UserID),
		slog.String("username", user.Username),
	)
	return &user, nil
}

// Login verifies the credentials and issues a signed session token.
// Wrong username and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrValidation)
		}
		return "", nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrValidation)
	}

	token, err := utils.GenerateJWT(user.UserID, s.jwtSecret, s.jwtExpiry, s.jwtIssuer)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// GetUserByID retrieves one user by identifier.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}
