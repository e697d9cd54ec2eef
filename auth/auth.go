// Package auth is the identity provider: email+password credentials
// kept in the store, Google sign-in, and JWT session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chatlink/models"
	"chatlink/store"
)

const (
	credentialsPath = "/usersAuth"
	emailIndexPath  = "/emailIndex"
	usersPath       = "/usersData"

	defaultAvatar = "https://res.cloudinary.com/doxycgig/image/upload/v1758604889/chat-avatart_ifaiiz.png"
)

var (
	ErrInvalidEmail  = errors.New("auth: invalid email")
	ErrWeakPassword  = errors.New("auth: password too short")
	ErrEmailInUse    = errors.New("auth: email already in use")
	ErrUserNotFound  = errors.New("auth: user not found")
	ErrWrongPassword = errors.New("auth: wrong password")
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9-_+.]+@[a-zA-Z0-9+-]+\.[a-zA-Z]{2,}$`)

// credentials live at /usersAuth/{userId}; the profile record is
// public, this one is not.
type credentials struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Provider     string `json:"provider"` // email, google
	CreatedAt    int64  `json:"createdAt"`
}

type Service struct {
	tree store.Tree
	now  func() time.Time
}

func NewService(tree store.Tree) *Service {
	return &Service{tree: tree, now: time.Now}
}

// Register creates the credential record, the email index entry and
// the public profile at /usersData/{id}.
func (s *Service) Register(ctx context.Context, email, password, name string) (models.UserProfile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return models.UserProfile{}, ErrInvalidEmail
	}
	if len(password) < 6 {
		return models.UserProfile{}, ErrWeakPassword
	}

	if existing, err := s.lookupEmail(ctx, email); err != nil {
		return models.UserProfile{}, err
	} else if existing != "" {
		return models.UserProfile{}, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.UserProfile{}, err
	}

	userID := uuid.NewString()
	creds := credentials{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hash),
		Provider:     "email",
		CreatedAt:    s.now().Unix(),
	}
	profile := models.UserProfile{
		ID:      userID,
		Name:    name,
		Email:   email,
		Photo:   defaultAvatar,
		Blocked: []string{},
	}

	if err := s.tree.Set(ctx, credentialsPath+"/"+userID, creds); err != nil {
		return models.UserProfile{}, fmt.Errorf("write credentials: %w", err)
	}
	if err := s.tree.Set(ctx, emailIndexPath+"/"+EncodeEmail(email), userID); err != nil {
		return models.UserProfile{}, fmt.Errorf("write email index: %w", err)
	}
	if err := s.tree.Set(ctx, usersPath+"/"+userID, profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("write profile: %w", err)
	}
	return profile, nil
}

// SignIn verifies an email+password pair and returns the profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.UserProfile, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	userID, err := s.lookupEmail(ctx, email)
	if err != nil {
		return models.UserProfile{}, err
	}
	if userID == "" {
		return models.UserProfile{}, ErrUserNotFound
	}

	var creds credentials
	if err := s.tree.Get(ctx, credentialsPath+"/"+userID, &creds); err != nil {
		return models.UserProfile{}, err
	}
	if creds.PasswordHash == "" {
		// Provider-only account; no password to check against.
		return models.UserProfile{}, ErrWrongPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		return models.UserProfile{}, ErrWrongPassword
	}

	var profile models.UserProfile
	if err := s.tree.Get(ctx, usersPath+"/"+userID, &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func (s *Service) lookupEmail(ctx context.Context, email string) (string, error) {
	var userID string
	if err := s.tree.Get(ctx, emailIndexPath+"/"+EncodeEmail(email), &userID); err != nil {
		return "", err
	}
	return userID, nil
}

// EncodeEmail makes an email address usable as a tree key: '.' is not
// allowed in path segments, so it becomes ','.
func EncodeEmail(email string) string {
	return strings.ReplaceAll(email, ".", ",")
}
