package main

import (
	"github.com/joho/godotenv"

	"smartfollow/internal/cli"
)

func main() {
	// RPC endpoints and price API keys are commonly kept in a local .env.
	_ = godotenv.Load()

	cli.Execute()
}
