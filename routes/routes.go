package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chatlink/handlers"
	"chatlink/middleware"
)

func SetupRouter(api *handlers.API, jwtSecret string) *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "ChatLink API is running",
			"time":    time.Now().Unix(),
			"ws":      "WebSocket available at /ws",
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://localhost:5500", "http://127.0.0.1:5500", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	router.POST("/api/signup", api.Signup)
	router.POST("/api/login", api.Login)
	router.GET("/api/vapid-public-key", api.GetVapidPublicKey)

	// Google OAuth routes
	router.GET("/api/google/auth-url", api.GetGoogleAuthURL)
	router.GET("/api/google/callback", api.GoogleOAuthCallback)

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuth(jwtSecret))

	// Profile
	protected.GET("/me", api.GetMyProfile)
	protected.PUT("/me", api.UpdateMyProfile)
	protected.GET("/user/:id", api.GetUser)
	protected.PUT("/me/status", api.UpdateUserStatus)
	protected.POST("/user/:id/block", api.BlockUser)

	// Directory search is the one endpoint a client can hammer while
	// typing, so it carries its own rate limit.
	searchLimiter := middleware.NewIPRateLimiter(60, time.Minute)
	protected.GET("/users/search", searchLimiter.Middleware(), api.SearchUsers)

	// Chats
	protected.GET("/chats", api.GetChatList)
	protected.POST("/chats", api.CreateChat)
	protected.GET("/chats/:id", api.GetChat)

	// Messages
	protected.POST("/message", api.SendMessage)
	protected.GET("/messages/:chatId", api.GetMessages)

	// Photo upload
	protected.POST("/upload-photo", api.UploadPhoto)

	// Push subscriptions
	protected.POST("/subscribe", api.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{
				"error":   "Endpoint not found",
				"path":    c.Request.URL.Path,
				"message": "Check the API documentation for available endpoints",
			})
			return
		}
		c.Next()
	})

	return router
}
