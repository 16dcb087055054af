package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/adminauth/internal/config"
	"github.com/BradenHooton/adminauth/internal/database"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the postgres attempt store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConfig, err := config.LoadDatabase()
		if err != nil {
			return fmt.Errorf("failed to load database configuration: %w", err)
		}

		logger, closer := pkglogger.New(pkglogger.Config{Level: "info"})
		defer closer.Close()

		db, err := database.NewConnection(dbConfig, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		return db.Migrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
