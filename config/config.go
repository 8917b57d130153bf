package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"oldb/pkg/logger"
)

type Config struct {
	ListenAddr string
	JWTSecret  string
	// ExportsDir is the root under which per-corpus export directories live.
	ExportsDir string
	AdminEmail string
	AdminPass  string

	dbUser string
	dbPass string
	dbHost string
	dbPort string
	dbName string
}

// Load reads the .env file (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	return &Config{
		ListenAddr: getEnv("OLDB_ADDR", ":8080"),
		JWTSecret:  getEnv("OLDB_JWT_SECRET", ""),
		ExportsDir: getEnv("OLDB_EXPORTS_DIR", "exports"),
		AdminEmail: getEnv("OLDB_ADMIN_EMAIL", "admin@oldb.local"),
		AdminPass:  getEnv("OLDB_ADMIN_PASS", ""),
		dbUser:     getEnv("user", "oldb"),
		dbPass:     getEnv("password", ""),
		dbHost:     getEnv("host", "localhost"),
		dbPort:     getEnv("port", "5432"),
		dbName:     getEnv("dbname", "oldb"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.dbUser, c.dbPass, c.dbHost, c.dbPort, c.dbName)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
