package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory into the
// process environment for local development, mirroring how hector's
// config.LoadDotEnv feeds env-var-driven config without a compose file.
// It is idempotent and never overwrites a variable already set, and a
// missing .env is not an error — production deployments set real env
// vars and carry no .env file at all.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug("config.dotenv_load_failed", "error", err)
	}
}
