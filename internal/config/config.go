package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	SupabaseURL     string
	SupabaseKey     string
	GeminiAPIKey    string
	VerifyToken     string
	MetaAccessToken string
	MetaPhoneID     string
	Port            string
	SessionTTL      time.Duration
	PayeeThreshold  float64
}

// LoadConfig reads configuration from the environment, loading a local .env
// file first when present. Missing required variables are a startup error.
func LoadConfig() (*Config, error) {
	// A missing .env is fine in production where variables come from the host.
	_ = godotenv.Load()

	cfg := &Config{
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		MetaAccessToken: os.Getenv("META_ACCESS_TOKEN"),
		MetaPhoneID:     os.Getenv("META_PHONE_ID"),
		Port:            os.Getenv("PORT"),
		SessionTTL:      3 * time.Minute,
		PayeeThreshold:  0.65,
	}

	required := []struct{ name, value string }{
		{"SUPABASE_URL", cfg.SupabaseURL},
		{"SUPABASE_KEY", cfg.SupabaseKey},
		{"GEMINI_API_KEY", cfg.GeminiAPIKey},
		{"VERIFY_TOKEN", cfg.VerifyToken},
		{"META_ACCESS_TOKEN", cfg.MetaAccessToken},
		{"META_PHONE_ID", cfg.MetaPhoneID},
	}
	for _, v := range required {
		if v.value == "" {
			return nil, fmt.Errorf("environment variable %s is not set", v.name)
		}
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", raw, err)
		}
		cfg.SessionTTL = ttl
	}
	if raw := os.Getenv("PAYEE_MATCH_THRESHOLD"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("invalid PAYEE_MATCH_THRESHOLD %q", raw)
		}
		cfg.PayeeThreshold = threshold
	}

	return cfg, nil
}
