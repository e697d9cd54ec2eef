package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatlink/auth"
	"chatlink/chat"
	"chatlink/config"
	"chatlink/handlers"
	applog "chatlink/log"
	"chatlink/routes"
	"chatlink/store"
	"chatlink/websocket"
)

func main() {
	log.Println("Starting ChatLink server...")

	cfg := config.Load()
	logger := applog.New()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// ===== STORE BACKEND =====
	var tree store.Tree
	switch cfg.StoreBackend {
	case "memory":
		log.Println("Using in-memory store (data is not persisted)")
		tree = store.NewMemoryTree()

	case "mongo":
		log.Println("Connecting to MongoDB...")
		var mt *store.MongoTree
		var dbErr error
		for i := 1; i <= 3; i++ {
			mt, dbErr = store.NewMongoTree(ctx, cfg.MongoURI, cfg.MongoDB, logger)
			if dbErr != nil {
				log.Printf("MongoDB connection attempt %d failed: %v", i, dbErr)
				time.Sleep(2 * time.Second)
				continue
			}
			break
		}
		if dbErr != nil {
			log.Fatal("Failed to connect to MongoDB: ", dbErr)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := mt.Close(closeCtx); err != nil {
				log.Printf("MongoDB disconnect: %v", err)
			}
		}()
		tree = mt
		log.Println("MongoDB connected successfully")

	case "firebase":
		log.Println("Connecting to Firebase Realtime Database...")
		ft, err := store.NewFirebaseTree(ctx, cfg.FirebaseURL, logger)
		if err != nil {
			log.Fatal("Failed to initialize Firebase: ", err)
		}
		tree = ft
		log.Println("Firebase connected successfully")

	default:
		log.Fatalf("Unknown STORE_BACKEND %q (want firebase, mongo or memory)", cfg.StoreBackend)
	}

	// ===== SERVICES =====
	chatSvc := chat.NewService(tree)
	authSvc := auth.NewService(tree)
	api := handlers.NewAPI(tree, chatSvc, authSvc, cfg)

	// ===== GIN MODE =====
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter(api, cfg.JWTSecret)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ChatLink Backend Running",
			"service": "healthy",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// ===== WEBSOCKET =====
	wsManager := websocket.NewManager(chatSvc, cfg.JWTSecret)
	go wsManager.Start()
	router.GET("/ws", func(c *gin.Context) {
		websocket.Handler(wsManager)(c.Writer, c.Request)
	})
	log.Println("WebSocket endpoint: /ws")

	// ===== SERVER =====
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown: ", err)
	}
	log.Println("Server stopped gracefully")
}
