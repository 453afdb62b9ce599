package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var envFile = ".env"

// loadDotEnv loads CALCULATOR_* and OTEL_* variables from envFile when it
// exists. Variables already set in the process environment win.
func loadDotEnv() error {
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", envFile, err)
}
