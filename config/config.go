package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string

	// StoreBackend selects the Tree implementation: firebase, mongo
	// or memory.
	StoreBackend string
	FirebaseURL  string
	MongoURI     string
	MongoDB      string

	CloudinaryURL string

	VAPIDPublicKey  string
	VAPIDPrivateKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		StoreBackend:       getEnv("STORE_BACKEND", "firebase"),
		FirebaseURL:        getEnv("FIREBASE_DATABASE_URL", ""),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:            getEnv("MONGODB_DATABASE", "chatlink"),
		CloudinaryURL:      getEnv("CLOUDINARY_URL", ""),
		VAPIDPublicKey:     getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:    getEnv("VAPID_PRIVATE_KEY", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/google/callback"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if cfg.StoreBackend == "firebase" && cfg.FirebaseURL == "" {
		log.Fatal("FIREBASE_DATABASE_URL is required with STORE_BACKEND=firebase")
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
