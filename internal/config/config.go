package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

// MinFieldWidth は出現したピースが横にはみ出さない最小のボード幅です。
const MinFieldWidth = 5

// Config はサーバーと端末クライアントが共有する設定です。
type Config struct {
	Port           string
	JWTSecret      string
	BypassAuth     bool
	AllowedOrigins []string
	DropInterval   time.Duration
	FieldWidth     int
	FieldHeight    int
}

// Load は環境変数から設定を読み込みます。
// APP_ENV が production でない場合は、先に .env ファイルを読み込みます。
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
		}
	}
	return FromEnv()
}

// FromEnv は .env を読まずに、現在の環境変数だけから設定を組み立てます。
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		BypassAuth:     os.Getenv("BYPASS_AUTH") == "true",
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	dropMS, err := getInt("DROP_INTERVAL_MS", 500)
	if err != nil {
		return nil, err
	}
	if dropMS <= 0 {
		return nil, fmt.Errorf("DROP_INTERVAL_MS must be positive, got %d", dropMS)
	}
	cfg.DropInterval = time.Duration(dropMS) * time.Millisecond

	if cfg.FieldWidth, err = getInt("FIELD_WIDTH", 10); err != nil {
		return nil, err
	}
	if cfg.FieldHeight, err = getInt("FIELD_HEIGHT", 20); err != nil {
		return nil, err
	}
	// 出現列 (W/2-1) に4x4のピース行列が収まらないボードではゲームを始められない
	if cfg.FieldWidth/2-1+tetris.MatrixSize > cfg.FieldWidth || cfg.FieldHeight < tetris.MatrixSize {
		return nil, fmt.Errorf("field %dx%d cannot fit a piece at the spawn column (need at least %dx%d)",
			cfg.FieldWidth, cfg.FieldHeight, MinFieldWidth, tetris.MatrixSize)
	}

	if !cfg.BypassAuth && cfg.JWTSecret == "" {
		log.Println("warning: JWT_SECRET is not set; authenticated endpoints will reject every request")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
