package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

// storedSubscription is the record at /pushSubscriptions/{userId}.
type storedSubscription struct {
	UserID string               `json:"userId"`
	Sub    webpush.Subscription `json:"sub"`
}

func (a *API) GetVapidPublicKey(c *gin.Context) {
	if a.Cfg.VAPIDPublicKey == "" {
		c.JSON(http.StatusOK, gin.H{
			"error":   "VAPID public key not configured",
			"message": "Contact administrator",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": a.Cfg.VAPIDPublicKey})
}

func (a *API) SubscribePush(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userId")
	sub := storedSubscription{
		UserID: userID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}

	if err := a.Tree.Set(c.Request.Context(), "/pushSubscriptions/"+userID, sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved successfully", "userId": userID})
}
