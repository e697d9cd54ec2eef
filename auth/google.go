package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"chatlink/models"
)

// GoogleConfig carries the OAuth client settings from the
// environment.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c GoogleConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c GoogleConfig) oauth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleAuthURL returns the consent page URL for the given CSRF
// state.
func (c GoogleConfig) GoogleAuthURL(state string) string {
	return c.oauth().AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleSignIn exchanges an authorization code, fetches the Google
// account and provisions the profile on first sign-in, the same way
// the email flow does at registration.
func (s *Service) GoogleSignIn(ctx context.Context, cfg GoogleConfig, code string) (models.UserProfile, error) {
	token, err := cfg.oauth().Exchange(ctx, code)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	client := cfg.oauth().Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.UserProfile{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.UserProfile{}, err
	}
	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return models.UserProfile{}, fmt.Errorf("parse userinfo: %w", err)
	}
	return s.googleAccount(ctx, info)
}

// googleAccount resolves a Google identity to a profile: an email
// already on file signs in as that user, anything else provisions a
// fresh account.
func (s *Service) googleAccount(ctx context.Context, info googleUserInfo) (models.UserProfile, error) {
	// Same normalization as Register: provider casing must not fork a
	// second account for a known address.
	info.Email = strings.TrimSpace(strings.ToLower(info.Email))
	if info.Email == "" {
		return models.UserProfile{}, ErrInvalidEmail
	}

	// Existing account: sign in as that user.
	if userID, err := s.lookupEmail(ctx, info.Email); err != nil {
		return models.UserProfile{}, err
	} else if userID != "" {
		var profile models.UserProfile
		if err := s.tree.Get(ctx, usersPath+"/"+userID, &profile); err != nil {
			return models.UserProfile{}, err
		}
		return profile, nil
	}

	// First sign-in: provision credentials and profile.
	userID := "g-" + info.ID
	creds := credentials{
		UserID:    userID,
		Email:     info.Email,
		Provider:  "google",
		CreatedAt: s.now().Unix(),
	}
	photo := info.Picture
	if photo == "" {
		photo = defaultAvatar
	}
	profile := models.UserProfile{
		ID:      userID,
		Name:    info.Name,
		Email:   info.Email,
		Photo:   photo,
		Blocked: []string{},
	}

	if err := s.tree.Set(ctx, credentialsPath+"/"+userID, creds); err != nil {
		return models.UserProfile{}, fmt.Errorf("write credentials: %w", err)
	}
	if err := s.tree.Set(ctx, emailIndexPath+"/"+EncodeEmail(info.Email), userID); err != nil {
		return models.UserProfile{}, fmt.Errorf("write email index: %w", err)
	}
	if err := s.tree.Set(ctx, usersPath+"/"+userID, profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("write profile: %w", err)
	}
	return profile, nil
}
