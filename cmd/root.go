package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile       string
	dsn           string
	verbose       bool
	includeTables []string
	excludeTables []string
	DB            *sql.DB
	DriverName    string // mysql, postgres, sqlserver, oracle or sqlite
	SchemaName    string
	Logger        *zap.Logger
)

var RootCmd = &cobra.Command{
	Use:   "db-lens",
	Short: "Database schema inspection and relationship mapping",
	Long: `
  ____  ____    _     _____ _   _ ____
 |  _ \| __ )  | |   | ____| \ | / ___|
 | | | |  _ \  | |   |  _| |  \| \___ \
 | |_| | |_) | | |___| |___| |\  |___) |
 |____/|____/  |_____|_____|_| \_|____/

DB LENS - Schema Introspection & Relationship Explorer
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if Logger == nil {
			if verbose {
				Logger, err = zap.NewDevelopment()
			} else {
				cfg := zap.NewProductionConfig()
				cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
				Logger, err = cfg.Build()
			}
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
		}

		// DSN precedence: flag > active config entry > viper default.
		connStr := viper.GetString("database.dsn")
		configDriver := viper.GetString("database.driver")
		if active, err := GetActiveDBConfig(); err == nil {
			if connStr == "" {
				connStr = active.DSN
			}
			if configDriver == "" {
				configDriver = active.Driver
			}
			if SchemaName == "" {
				SchemaName = active.Schema
			}
		}
		if connStr == "" {
			return fmt.Errorf("database.dsn is required (via flag or config)")
		}

		if configDriver != "" {
			DriverName = configDriver
		} else {
			DriverName = detectDriver(connStr)
		}

		DB, err = sql.Open(DriverName, connStr)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if err := DB.Ping(); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		if SchemaName == "" && DriverName == "mysql" {
			if err := DB.QueryRow("SELECT DATABASE()").Scan(&SchemaName); err != nil {
				return fmt.Errorf("failed to get database name: %w", err)
			}
			if SchemaName == "" {
				return fmt.Errorf("no database selected in DSN")
			}
		}

		Logger.Debug("connected",
			zap.String("driver", DriverName),
			zap.String("schema", SchemaName))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
		if Logger != nil {
			Logger.Sync()
		}
	},
}

// detectDriver guesses the driver from DSN shape when the config does not
// name one explicitly.
func detectDriver(connStr string) string {
	switch {
	case strings.HasPrefix(connStr, "postgres://") || strings.Contains(connStr, "sslmode"):
		return "postgres"
	case strings.HasPrefix(connStr, "sqlserver://") || strings.Contains(connStr, "database="):
		return "sqlserver"
	case strings.HasPrefix(connStr, "oracle://"):
		return "oracle"
	case strings.HasSuffix(connStr, ".db") || strings.HasSuffix(connStr, ".sqlite") || connStr == ":memory:":
		return "sqlite3"
	default:
		return "mysql"
	}
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-lens.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().StringVar(&SchemaName, "schema", "", "Schema to inspect (defaults to the dialect's convention)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().StringSliceVarP(&includeTables, "tables", "t", []string{}, "Specific tables to include (comma-separated)")
	RootCmd.PersistentFlags().StringSliceVar(&excludeTables, "exclude", []string{}, "Tables to skip (comma-separated)")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("db-lens")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
