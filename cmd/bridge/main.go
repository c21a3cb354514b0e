package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/lakeops/bridge/internal/cli"
)

func main() {
	// A missing .env file is fine; the environment still applies
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
