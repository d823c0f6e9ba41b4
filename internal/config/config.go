package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Dev              bool
	MongoURI         string
	MongoDB          string
	RedisAddr        string
	RabbitURL        string
	JWTSecret        string
	AccessTTLMin     int
	RefreshTTLDays   int
	GoogleClientID   string
	GoogleSecret     string
	GoogleRedirect   string
	OAuthStateSecret string
	FrontendURL      string
}

func Load() Config {
	// .env is optional; real env always wins
	_ = godotenv.Load()

	return Config{
		Port:             getenv("APP_PORT", "8080"),
		Dev:              getenv("APP_ENV", "dev") != "production",
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getenv("MONGO_DB", "edu_auth"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RabbitURL:        getenv("RABBIT_URL", ""),
		JWTSecret:        getenv("JWT", "default_secret_key"),
		AccessTTLMin:     atoi(getenv("ACCESS_TTL_MIN", "15")),
		RefreshTTLDays:   atoi(getenv("REFRESH_TTL_DAYS", "30")),
		GoogleClientID:   getenv("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:     getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:   getenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		OAuthStateSecret: getenv("OAUTH_STATE_SECRET", "default_state_secret"),
		FrontendURL:      getenv("FRONTEND_URL", ""),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
