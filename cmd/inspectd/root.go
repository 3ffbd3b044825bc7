package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"truck-inspection-backend/config"
	"truck-inspection-backend/internal/db"
	"truck-inspection-backend/internal/logger"
	"truck-inspection-backend/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.SugaredLogger
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:          "inspectd",
	Short:        "Truck inspection checklist service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		path := cfgFile
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "./config/config.yaml"
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config from %s: %w", path, err)
		}
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log.Infow("configuration loaded", "path", path)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			_ = log.Sync()
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of inspectd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (defaults to $CONFIG_PATH or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(versionCmd)
}

// openRepository returns the configured inspection repository and, when a
// database is opened, the connection so subscriptions can share it.
func openRepository(needDB bool) (store.Repository, *gorm.DB, error) {
	var gormDB *gorm.DB
	if needDB || cfg.Storage.Backend == "database" {
		var err error
		gormDB, err = db.Init(&cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		log.Infow("database initialized", "driver", gormDB.Dialector.Name())
	}

	if cfg.Storage.Backend == "file" {
		log.Infow("using file storage", "path", cfg.Storage.FilePath)
		return store.NewFileStore(cfg.Storage.FilePath, log), gormDB, nil
	}
	return store.NewGormStore(gormDB, log), gormDB, nil
}

func exportLocation() *time.Location {
	loc, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		log.Warnw("unknown export timezone, using local time", "timezone", cfg.Export.Timezone, "err", err)
		return time.Local
	}
	return loc
}

func closeDB(gormDB *gorm.DB) {
	if gormDB == nil {
		return
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

