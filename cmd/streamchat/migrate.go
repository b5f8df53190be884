package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiawesome/streamchat/internal/config"
	"github.com/weiawesome/streamchat/internal/repository"
	"github.com/weiawesome/streamchat/pkg/database"
	pkglog "github.com/weiawesome/streamchat/pkg/log"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the session history schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pkglog.Init(cfg.Log)

			if !cfg.Database.Enabled {
				return errors.New("database is disabled: set database.enabled or DB_ENABLED")
			}

			db, err := database.New(&cfg.Database.Config)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close(db)

			if err := repository.NewGormHistoryRepository(db).Migrate(); err != nil {
				return fmt.Errorf("migrate session history: %w", err)
			}

			cmd.Printf("Session history schema is up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	})
}
