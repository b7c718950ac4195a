package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr            string
	OrderServiceURL string
	JWTSecret       string
	TaxRate         decimal.Decimal
	ReceiptDir      string
	// ShareDir is where exported receipts are handed off. Empty disables sharing.
	ShareDir     string
	HTTPTimeout  time.Duration
	FetchRetries uint64
	DatabaseURL  string
	LogLevel     string
}

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("POS_ADDR", ":8080"),
		OrderServiceURL: getenv("ORDER_SERVICE_URL", "http://localhost:8000"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TaxRate:         getDecimal("POS_TAX_RATE", decimal.RequireFromString("0.1")),
		ReceiptDir:      getenv("RECEIPT_DIR", filepath.Join(os.TempDir(), "table-pos")),
		ShareDir:        os.Getenv("SHARE_DIR"),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 10*time.Second),
		FetchRetries:    uint64(getInt("FETCH_RETRIES", 3)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getDecimal(key string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
