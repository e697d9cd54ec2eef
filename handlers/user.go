package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"

	"chatlink/chat"
)

func (a *API) GetMyProfile(c *gin.Context) {
	userID := c.GetString("userId")

	profile, err := a.Chat.Profile(c.Request.Context(), userID)
	if errors.Is(err, chat.ErrUnknownUser) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		log.Printf("[GetMyProfile] store error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	if profile.Photo == "" {
		profile.Photo = fallbackAvatar
	}
	c.JSON(http.StatusOK, profile)
}

// GetUser never 404s: a missing profile renders as a placeholder so a
// stale chat list entry stays usable.
func (a *API) GetUser(c *gin.Context) {
	userID := c.Param("id")

	profile, err := a.Chat.Profile(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, chat.ErrUnknownUser) {
			log.Printf("[GetUser] store error: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{
			"id":     userID,
			"name":   "Unknown User",
			"photo":  fallbackAvatar,
			"status": "offline",
		})
		return
	}

	// Public view only.
	c.JSON(http.StatusOK, gin.H{
		"id":       profile.ID,
		"name":     profile.Name,
		"photo":    profile.Photo,
		"status":   profile.Status,
		"lastSeen": profile.LastSeen,
	})
}

// SearchUsers is the directory lookup: substring match on name,
// caller excluded, empty query means empty result.
func (a *API) SearchUsers(c *gin.Context) {
	userID := c.GetString("userId")
	query := c.Query("q")

	results := a.Chat.SearchUsers(c.Request.Context(), userID, query)

	out := make([]gin.H, 0, len(results))
	for _, p := range results {
		out = append(out, gin.H{"id": p.ID, "name": p.Name, "photo": p.Photo})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type profileUpdate struct {
	Name string `json:"name" form:"name"`
}

// UpdateMyProfile changes the display name and, when a multipart
// avatar file is attached, uploads it to Cloudinary and stores the
// URL.
func (a *API) UpdateMyProfile(c *gin.Context) {
	userID := c.GetString("userId")
	ctx := c.Request.Context()

	var data profileUpdate
	if c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON data"})
			return
		}
	} else {
		if err := c.Request.ParseMultipartForm(10 << 20); err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
			return
		}
		if err := c.ShouldBind(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
			return
		}
	}

	updated := false
	if data.Name != "" {
		if err := a.Tree.Set(ctx, "/usersData/"+userID+"/name", data.Name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		updated = true
	}

	if avatarFile, _, err := c.Request.FormFile("avatar"); err == nil {
		defer avatarFile.Close()

		cld, err := cloudinary.NewFromURL(a.Cfg.CloudinaryURL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cloudinary configuration error"})
			return
		}
		uploadResult, err := cld.Upload.Upload(ctx, avatarFile, uploader.UploadParams{
			Folder:         "chatlink/avatars",
			PublicID:       userID,
			Transformation: "c_limit,w_400,h_400,q_auto",
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload avatar"})
			return
		}
		if err := a.Tree.Set(ctx, "/usersData/"+userID+"/photo", uploadResult.SecureURL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		updated = true
	}

	if !updated {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// UploadPhoto uploads an image and returns its URL, for use as a
// message attachment.
func (a *API) UploadPhoto(c *gin.Context) {
	userID := c.GetString("userId")
	ctx := c.Request.Context()

	if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
		return
	}
	photoFile, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo file provided"})
		return
	}
	defer photoFile.Close()

	cld, err := cloudinary.NewFromURL(a.Cfg.CloudinaryURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cloudinary configuration error"})
		return
	}
	uploadResult, err := cld.Upload.Upload(ctx, photoFile, uploader.UploadParams{
		Folder:         "chatlink/photos",
		PublicID:       userID + "_" + time.Now().Format("20060102150405"),
		Transformation: "c_limit,w_800,h_800,q_auto",
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": uploadResult.SecureURL})
}

// UpdateUserStatus writes the presence fields. lastSeen plus a
// staleness threshold on the reader side is what turns this into an
// online indicator.
func (a *API) UpdateUserStatus(c *gin.Context) {
	userID := c.GetString("userId")

	var req struct {
		Status string `json:"status" binding:"required,oneof=available busy offline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	ctx := c.Request.Context()
	if err := a.Tree.Set(ctx, "/usersData/"+userID+"/status", req.Status); err != nil {
		log.Printf("[UpdateUserStatus] store error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	if err := a.Tree.Set(ctx, "/usersData/"+userID+"/lastSeen", time.Now().Unix()); err != nil {
		log.Printf("[UpdateUserStatus] store error: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated successfully", "status": req.Status})
}

// BlockUser adds a user to the caller's blocked list; blocked users
// disappear from directory lookups.
func (a *API) BlockUser(c *gin.Context) {
	userID := c.GetString("userId")
	targetID := c.Param("id")
	ctx := c.Request.Context()

	profile, err := a.Chat.Profile(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	for _, id := range profile.Blocked {
		if id == targetID {
			c.JSON(http.StatusOK, gin.H{"message": "Already blocked"})
			return
		}
	}
	blocked := append(profile.Blocked, targetID)
	if err := a.Tree.Set(ctx, "/usersData/"+userID+"/blocked", blocked); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked", "blocked": blocked})
}
