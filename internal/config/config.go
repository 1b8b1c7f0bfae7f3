package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingBackend is returned when the backend service URL or anon key is
// not configured. The application cannot serve anything without them.
var ErrMissingBackend = errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required")

type Config struct {
	Env                string
	BindAddr           string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseJWTSecret  string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ProfileCacheTTL    time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	MediaBackend       string
	UploadDir          string
	UploadBaseURL      string
	R2AccessKeyID      string
	R2SecretAccessKey  string
	R2Endpoint         string
	R2BucketName       string
	AvatarBucket       string
	CoverBucket        string
	AllowedOrigins     []string
	CookieSecure       bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function; Load uses os.Getenv after
// reading .env.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	url := get("SUPABASE_URL", "")
	key := get("SUPABASE_ANON_KEY", "")
	if url == "" || key == "" {
		return nil, ErrMissingBackend
	}

	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	ttlSec, err := strconv.Atoi(get("PROFILE_CACHE_TTL", "60"))
	if err != nil || ttlSec < 0 {
		ttlSec = 60
	}
	secure, _ := strconv.ParseBool(get("COOKIE_SECURE", "false"))

	return &Config{
		Env:                get("APP_ENV", "development"),
		BindAddr:           get("BIND_ADDR", ":8080"),
		SupabaseURL:        strings.TrimRight(url, "/"),
		SupabaseAnonKey:    key,
		SupabaseJWTSecret:  get("SUPABASE_JWT_SECRET", ""),
		DatabaseURL:        get("DATABASE_URL", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		RedisPassword:      get("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		ProfileCacheTTL:    time.Duration(ttlSec) * time.Second,
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  get("GOOGLE_REDIRECT_URL", ""),
		MediaBackend:       get("MEDIA_BACKEND", "local"),
		UploadDir:          get("UPLOAD_DIR", "./uploads"),
		UploadBaseURL:      get("UPLOAD_BASE_URL", "http://localhost:8080"),
		R2AccessKeyID:      get("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:  get("R2_SECRET_ACCESS_KEY", ""),
		R2Endpoint:         get("R2_ENDPOINT", ""),
		R2BucketName:       get("R2_BUCKET_NAME", ""),
		AvatarBucket:       get("AVATAR_BUCKET", "avatars"),
		CoverBucket:        get("COVER_BUCKET", "covers"),
		AllowedOrigins:     splitList(get("ALLOWED_ORIGINS", "http://localhost:8080,http://localhost:5173")),
		CookieSecure:       secure,
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
