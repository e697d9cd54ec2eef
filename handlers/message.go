package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"chatlink/chat"
)

type sendMessageRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (a *API) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userId")
	ctx := c.Request.Context()

	msg, err := a.Chat.SendMessage(ctx, userID, req.ChatID, req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		// Whitespace-only input is dropped without complaint.
		c.JSON(http.StatusOK, gin.H{"message": "Empty message ignored"})
		return
	case errors.Is(err, chat.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or access denied"})
		return
	case err != nil:
		log.Printf("[SendMessage] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message. Please try again"})
		return
	}

	if req.ChatID != chat.SavedMessagesID {
		if meta, err := a.Chat.Metadata(ctx, userID, req.ChatID); err == nil {
			go a.notifyCounterpart(meta.ReceiverID, userID, req.Text)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent", "timestamp": msg.Timestamp})
}

func (a *API) GetMessages(c *gin.Context) {
	userID := c.GetString("userId")
	chatID := c.Param("chatId")

	thread, err := a.Chat.Messages(c.Request.Context(), userID, chatID)
	if err != nil {
		log.Printf("[GetMessages] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": thread})
}

// notifyCounterpart sends a best-effort web push nudge. Delivery of
// the message itself is the store subscription, not this.
func (a *API) notifyCounterpart(receiverID, senderID, text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in push notification: %v", r)
		}
	}()
	if a.Cfg.VAPIDPrivateKey == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stored storedSubscription
	if err := a.Tree.Get(ctx, "/pushSubscriptions/"+receiverID, &stored); err != nil {
		log.Printf("failed to load push subscription: %v", err)
		return
	}
	if stored.Sub.Endpoint == "" {
		return
	}

	sender, err := a.Chat.Profile(ctx, senderID)
	if err != nil {
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"title": sender.Name + " sent a message",
		"body":  text,
		"icon":  sender.Photo,
	})
	resp, err := webpush.SendNotification(payload, &stored.Sub, &webpush.Options{
		Subscriber:      "admin@chatlink.app",
		VAPIDPublicKey:  a.Cfg.VAPIDPublicKey,
		VAPIDPrivateKey: a.Cfg.VAPIDPrivateKey,
		TTL:             30,
	})
	if err != nil {
		log.Printf("failed to send push: %v", err)
		return
	}
	resp.Body.Close()
}
