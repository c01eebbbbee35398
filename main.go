package main

import (
	"github.com/joho/godotenv"

	"sjsage522/shopcollagebot/logger"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := newRootCommand().Execute(); err != nil {
		logger.Default.Fatal().Err(err).Msg("Command failed")
	}
}
