package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatlink/chat"
)

// GetChatList returns the caller's projection, most recent first. A
// reconciliation pass runs first so one-sided chats heal on load
// instead of staying invisible to the counterpart forever.
func (a *API) GetChatList(c *gin.Context) {
	userID := c.GetString("userId")
	ctx := c.Request.Context()

	if healed, err := a.Chat.Reconcile(ctx, userID); err != nil {
		// The projection itself still renders.
		log.Printf("[GetChatList] reconcile: healed=%d err=%v", healed, err)
	}

	list, err := a.Chat.ChatList(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": list})
}

type createChatRequest struct {
	TargetID string `json:"targetId" binding:"required"`
}

func (a *API) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userId")
	meta, err := a.Chat.CreateChat(c.Request.Context(), userID, req.TargetID)
	switch {
	case errors.Is(err, chat.ErrUnknownUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a user from the list"})
		return
	case err != nil:
		log.Printf("[CreateChat] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat. Please try again"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": meta.ChatID, "chat": meta})
}

func (a *API) GetChat(c *gin.Context) {
	userID := c.GetString("userId")
	chatID := c.Param("id")

	meta, err := a.Chat.Metadata(c.Request.Context(), userID, chatID)
	if errors.Is(err, chat.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or access denied"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat"})
		return
	}
	c.JSON(http.StatusOK, meta)
}
