package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles account registration, login, and JWT token operations.
type AuthService struct {
	profiles   domain.ProfileRepository
	jwtSecret  []byte
	bcryptCost int
	adminEmail string
}

// NewAuthService creates a new AuthService. adminEmail, when non-empty,
// names the account that is granted admin access on registration so a
// fresh deployment has a first moderator; it may be blank.
func NewAuthService(profiles domain.ProfileRepository, jwtSecret string, bcryptCost int, adminEmail string) *AuthService {
	return &AuthService{
		profiles:   profiles,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
		adminEmail: strings.TrimSpace(strings.ToLower(adminEmail)),
	}
}

// Register creates a new account after validating inputs. A blank display
// name defaults to the local part of the email address.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*domain.Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &domain.Profile{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		IsAdmin:      s.adminEmail != "" && email == s.adminEmail,
		Status:       domain.ProfileStatusActive,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return profile, nil
}

// Login verifies credentials and returns a signed JWT token along with
// the profile. Suspended accounts are rejected with the same error as
// bad credentials so account state cannot be probed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrUnauthorized
		}
		return "", nil, fmt.Errorf("get profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrUnauthorized
	}

	if profile.Status == domain.ProfileStatusSuspended {
		return "", nil, domain.ErrUnauthorized
	}

	token, err := s.generateJWT(profile)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	return token, profile, nil
}

// ValidateToken parses and validates a JWT token string.
// Returns the profile ID from the sub claim.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized
	}

	return id, nil
}

// GetProfileByID retrieves a profile by its ID.
func (s *AuthService) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *AuthService) generateJWT(profile *domain.Profile) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          profile.ID.String(),
		"email":        profile.Email,
		"display_name": profile.DisplayName,
		"is_admin":     profile.IsAdmin,
		"iat":          now.Unix(),
		"exp":          now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
