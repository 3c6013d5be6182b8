package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/database"
	"chat-gateway/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims is the session token payload: identity claims on top of the
// registered set. Subject carries the user id.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed session tokens and backs the HTTP
// login/register surface. Verify is a pure function of the token and the
// signing secret, so it is safe to call from any goroutine.
type Service struct {
	store database.UserStore
	cfg   *config.Config
}

func NewService(store database.UserStore, cfg *config.Config) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
	}
}

func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	// Validate input
	if err := s.validateRegistrationRequest(req); err != nil {
		return nil, err
	}

	// Create user
	user, err := s.store.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Generate token
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token: token,
		User:  *user,
	}, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	// Get user by email
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Generate token
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Remove sensitive data
	user.PasswordHash = ""

	return &models.LoginResponse{
		Token: token,
		User:  *user,
	}, nil
}

// Verify validates a signed session token and returns the identity it
// carries. It implements gateway.TokenVerifier.
func (s *Service) Verify(tokenString string) (*models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return &models.Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: claims.Provider,
	}, nil
}

// IssueToken signs a session token for the user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	provider := user.Provider
	if provider == "" {
		provider = "local"
	}

	now := time.Now()
	claims := Claims{
		Email:    user.Email,
		Name:     user.Username,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.ExpiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWT.Secret)
}

// GetUserFromToken resolves a token to the stored user record. Used by the
// HTTP profile endpoint; the gateway only ever needs Verify.
func (s *Service) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	identity, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	return s.store.GetUserByID(ctx, identity.Subject)
}

func (s *Service) validateRegistrationRequest(req *models.RegisterRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("missing required fields")
	}

	// Validate email format
	if !isValidEmail(req.Email) {
		return fmt.Errorf("invalid email format")
	}

	// Validate password strength
	if len(req.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	// Sanitize and validate username
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return fmt.Errorf("username must be 3-30 characters long")
	}

	return nil
}

func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}
