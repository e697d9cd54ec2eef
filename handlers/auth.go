package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatlink/auth"
)

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (a *API) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := a.Auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := auth.NewToken(profile.ID, a.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
		"userId":  profile.ID,
	})
}

func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := a.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found. Register yourself"})
		return
	case errors.Is(err, auth.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	token, err := auth.NewToken(profile.ID, a.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"userId":  profile.ID,
		"message": "Login successful",
	})
}

// GetGoogleAuthURL hands the client the consent page URL.
func (a *API) GetGoogleAuthURL(c *gin.Context) {
	google := a.google()
	if !google.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"url": google.GoogleAuthURL(state), "state": state})
}

// GoogleOAuthCallback finishes the provider sign-in and issues a
// session token.
func (a *API) GoogleOAuthCallback(c *gin.Context) {
	google := a.google()
	if !google.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code missing"})
		return
	}

	profile, err := a.Auth.GoogleSignIn(c.Request.Context(), google, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in with Google"})
		return
	}

	token, err := auth.NewToken(profile.ID, a.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"userId": profile.ID,
		"name":   profile.Name,
		"avatar": profile.Photo,
	})
}
