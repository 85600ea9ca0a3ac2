package main

import (
	"fmt"

	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/config"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "foodgram",
		Short:         "Recipe sharing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := openDatabase()
			return err
		},
	}

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Load catalogue data from CSV files",
	}
	importIngredientsCmd = &cobra.Command{
		Use:   "ingredients [csv file]",
		Short: "Import ingredients (name, measurement_unit)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportIngredients,
	}
	importTagsCmd = &cobra.Command{
		Use:   "tags [csv file]",
		Short: "Import tags (name, color, slug)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportTags,
	}

	adminEmail    string
	adminUsername string
	adminPassword string

	createAdminCmd = &cobra.Command{
		Use:   "createadmin",
		Short: "Create the first admin user, or promote an existing one by email",
		Args:  cobra.NoArgs,
		RunE:  runCreateAdmin,
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@foodgram.local", "admin email")
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
	_ = createAdminCmd.MarkFlagRequired("password")

	importCmd.AddCommand(importIngredientsCmd, importTagsCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, createAdminCmd)
}

// openDatabase connects and runs migrations
func openDatabase() (*gorm.DB, error) {
	if err := database.Connect(cfg.DSN()); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.Info().Str("path", cfg.DSN()).Msg("database migrations completed")
	return db, nil
}
