package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bookhub/internal/config"
	"bookhub/internal/http-api/middleware/auth"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *models.User, err error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, err error)
	RevokeToken(ctx context.Context, refreshToken string) error
	ValidateToken(tokenString string) (models.Actor, error)
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtSecret        string
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        cfg.JWTSecret,
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
	}
}

// Register creates a user and grants the author role, the default for
// self-registered accounts.
func (s *authService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.userRepo.AssignRole(ctx, user, models.RoleAuthor); err != nil {
		return nil, err
	}

	// reload so roles and permissions come back populated
	return s.userRepo.FindByID(ctx, user.ID)
}

// Login authenticates a user and returns access and refresh tokens upon successful login.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		// User not found: dummy compare to mitigate timing attacks (always take same time)
		auth.VerifyPassword("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e", password)
		return "", "", nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, err
	}

	return accessToken, refreshToken, user, nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":     user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"roles":       user.RoleNames(),
		"permissions": user.PermissionNames(),
		"exp":         time.Now().Add(s.accessTokenTTL).Unix(),
		"iat":         time.Now().Unix(),
		"type":        "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	token := uuid.New().String()
	if err := s.refreshTokenRepo.Create(ctx, token, user.ID, s.refreshTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// RefreshAccessToken rotates both tokens: the presented refresh token is
// consumed and a fresh pair comes back.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	userID, err := s.refreshTokenRepo.UserID(ctx, refreshToken)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return "", "", err
	}

	newAccessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", err
	}

	newRefreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", err
	}

	return newAccessToken, newRefreshToken, nil
}

func (s *authService) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.refreshTokenRepo.Delete(ctx, refreshToken)
}

// ValidateToken verifies an access token and rebuilds the Actor the token
// was minted for.
func (s *authService) ValidateToken(tokenString string) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, ErrInvalidToken
	}
	if claims["type"] != "access" {
		return models.Actor{}, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return models.Actor{}, ErrInvalidToken
	}

	actor := models.Actor{
		ID:          uint(userID),
		Roles:       claimStrings(claims["roles"]),
		Permissions: claimStrings(claims["permissions"]),
	}
	if name, ok := claims["name"].(string); ok {
		actor.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		actor.Email = email
	}
	return actor, nil
}

// claimStrings coerces a decoded JSON claim back into a string slice.
func claimStrings(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
