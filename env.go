package pomod

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const dotEnvFile = ".env"

// loadDotEnv exports variables from a .env file in the working directory.
// A missing file is fine.
func loadDotEnv() {
	_ = godotenv.Load(dotEnvFile)
}

// parseEnv overrides fields of target that have a POMOD_* variable set.
func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
