package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	AdminSecret   string
	SheetsAPIKey  string
	SpreadsheetID string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ No .env file found, using system ENV")
		} else {
			log.Println("✅ .env file loaded!")
		}
	} else {
		log.Println("🚀 Running in Railway, using system ENV")
	}

	AdminSecret = GetEnv("ADMIN_SECRET")
	SheetsAPIKey = GetEnv("SHEETS_API_KEY")
	SpreadsheetID = GetEnv("SPREADSHEET_ID")

	if AdminSecret == "" {
		log.Println("❌ ADMIN_SECRET not set! Admin routes will reject every request.")
	} else {
		log.Println("✅ ADMIN_SECRET loaded.")
	}

	if SheetsAPIKey == "" {
		log.Println("⚠️ SHEETS_API_KEY not set, sheet fetches will fail until configured.")
	}
	if SpreadsheetID == "" {
		log.Println("⚠️ SPREADSHEET_ID not set.")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
