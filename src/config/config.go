package config

import (
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

var (
	API_ENV    = os.Getenv("API_ENV")
	API_HOST   = os.Getenv("API_HOST")
	API_SECRET = os.Getenv("API_SECRET")
	APP_HOST   = os.Getenv("APP_HOST")
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// PendingSelectionTTL bounds how long a checkout selection stays in the
// cache before settlement. An order settling after this window is the
// degraded reconcile path, not an error.
const PENDING_SELECTION_TTL_MINUTES = 15
