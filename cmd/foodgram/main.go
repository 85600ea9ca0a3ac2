package main

import (
	"os"

	"github.com/mikepea/foodgram/pkg/foodgram/logging"
)

// @title Foodgram API
// @version 1.0
// @description Recipe sharing with favorites, shopping lists and subscriptions.

// @contact.name Foodgram Support
// @contact.url https://github.com/mikepea/foodgram

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}" or "Token {token}"

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
