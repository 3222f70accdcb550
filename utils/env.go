package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env into the process environment. A missing file is skipped,
// variables already set in the environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
