package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
// Provider credentials are read once at startup and never mutated afterwards.
type Config struct {
	AppEnv string
	Port   string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIVisionModel string

	LeonardoAPIKey  string
	LeonardoBaseURL string
	LeonardoModelID string

	ImgBBAPIKey    string
	ImgBBUploadURL string

	FontsDir       string
	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	// SubmitRatePerMin paces image-synthesis submissions across all
	// in-flight book generations.
	SubmitRatePerMin int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. It fails when any provider credential is absent so a
// misconfigured deployment dies at startup instead of midway through a book.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIVisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4-turbo"),

		LeonardoAPIKey:  os.Getenv("LEONARDO_API_KEY"),
		LeonardoBaseURL: getEnv("LEONARDO_BASE_URL", "https://cloud.leonardo.ai/api/rest/v1"),
		LeonardoModelID: getEnv("LEONARDO_MODEL_ID", "de7d3faf-762f-48e0-b3b7-9d0ac3a3fcf3"),

		ImgBBAPIKey:    os.Getenv("IMGBB_API_KEY"),
		ImgBBUploadURL: getEnv("IMGBB_UPLOAD_URL", "https://api.imgbb.com/1/upload"),

		FontsDir:       getEnv("FONTS_DIR", "./assets/fonts"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		SubmitRatePerMin: getEnvInt("SUBMIT_RATE_PER_MINUTE", 12),
	}

	var missing []string
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.LeonardoAPIKey == "" {
		missing = append(missing, "LEONARDO_API_KEY")
	}
	if cfg.ImgBBAPIKey == "" {
		missing = append(missing, "IMGBB_API_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
