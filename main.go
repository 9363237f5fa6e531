package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/hbukhari/ragcite/cmd"
)

func main() {
	// API keys and database overrides may live in a local .env file.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
