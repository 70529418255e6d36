package main

import (
	"context"
	"fmt"
	"os"

	"github.com/isdelr/bizops-api/internal/config"
	"github.com/isdelr/bizops-api/internal/database"
	"github.com/isdelr/bizops-api/internal/logger"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "bizops",
	Short:         "Business operations API",
	Long:          `Serves the products, users and estimates REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)
		return database.Migrate(db)
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	newUserName     string
	newUserEmail    string
	newUserPassword string
	newUserRole     string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account, typically the first administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)
		if err := database.Migrate(db); err != nil {
			return err
		}

		user, err := services.NewUserService(db).CreateUser(context.Background(), newUserName, newUserEmail, newUserPassword, newUserRole)
		if err != nil {
			if ve, ok := services.AsValidationError(err); ok {
				return fmt.Errorf("invalid user: %v", ve.Fields)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (id %d)\n", user.Role, user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")

	userCreateCmd.Flags().StringVar(&newUserName, "name", "Administrator", "display name")
	userCreateCmd.Flags().StringVar(&newUserEmail, "email", "", "login email")
	userCreateCmd.Flags().StringVar(&newUserPassword, "password", "", "password, at least 8 characters")
	userCreateCmd.Flags().StringVar(&newUserRole, "role", models.RoleAdmin, "admin or staff")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, Production: cfg.IsProduction(), File: cfg.LogFile})

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
