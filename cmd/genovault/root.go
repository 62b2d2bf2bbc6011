package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/genovault/genovault/internal/catalog"
	"github.com/genovault/genovault/internal/classify"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/store/filestore"
	"github.com/genovault/genovault/internal/store/sqlstore"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "genovault",
		Short: "Manage cancer genomic records",
		Long: `genovault manages cancer genomic records: patients, gene expression
measurements and the mutation records derived from them by comparison
against a reference catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.genovault.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().String("storage-driver", "", "storage driver: file, sqlite, postgres or duckdb")
	cmd.PersistentFlags().String("storage-path", "", "path to the file or embedded database")
	cmd.PersistentFlags().String("storage-dsn", "", "DSN for the postgres driver")
	cmd.PersistentFlags().String("catalog", "", "path to the reference catalog YAML")
	_ = viper.BindPFlag("storage.driver", cmd.PersistentFlags().Lookup("storage-driver"))
	_ = viper.BindPFlag("storage.path", cmd.PersistentFlags().Lookup("storage-path"))
	_ = viper.BindPFlag("storage.dsn", cmd.PersistentFlags().Lookup("storage-dsn"))
	_ = viper.BindPFlag("catalog.path", cmd.PersistentFlags().Lookup("catalog"))

	cmd.AddCommand(newImportCmd(&verbose))
	cmd.AddCommand(newPatientCmd(&verbose))
	cmd.AddCommand(newGeneCmd(&verbose))
	cmd.AddCommand(newQueryCmd(&verbose))
	cmd.AddCommand(newReportCmd(&verbose))
	cmd.AddCommand(newReclassifyCmd(&verbose))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".genovault")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("GENOVAULT")
	viper.AutomaticEnv()

	viper.SetDefault("storage.driver", "file")
	viper.SetDefault("storage.path", "")
	viper.SetDefault("classify.tolerance", classify.DefaultTolerance)

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit or malformed one
		// is not.
		if _, notFound := err.(viper.ConfigFileNotFoundError); cfgFile == "" && (notFound || os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openStore opens the configured backend.
func openStore(logger *zap.Logger) (store.Store, error) {
	driver := viper.GetString("storage.driver")
	path := viper.GetString("storage.path")

	switch driver {
	case "file":
		if path == "" {
			path = "genovault.json"
		}
		return filestore.Open(path, filestore.WithLogger(logger))
	case "sqlite":
		if path == "" {
			path = "genovault.db"
		}
		return sqlstore.Open(sqlstore.DriverSQLite, path, sqlstore.WithLogger(logger))
	case "duckdb":
		return sqlstore.Open(sqlstore.DriverDuckDB, path, sqlstore.WithLogger(logger))
	case "postgres":
		dsn := viper.GetString("storage.dsn")
		if dsn == "" {
			return nil, fmt.Errorf("storage.dsn is required for the postgres driver")
		}
		return sqlstore.Open(sqlstore.DriverPostgres, dsn, sqlstore.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// loadClassifier loads the configured catalog and builds a classifier.
func loadClassifier(logger *zap.Logger) (*classify.Classifier, error) {
	path := viper.GetString("catalog.path")
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			candidate := filepath.Join(home, ".genovault-catalog.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no reference catalog configured (set catalog.path or --catalog)")
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	c := classify.New(cat)
	c.SetTolerance(viper.GetFloat64("classify.tolerance"))
	c.SetLogger(logger)
	return c, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("genovault version %s (%s) built %s\n", version, commit, date)
		},
	}
}
