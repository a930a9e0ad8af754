package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kvblast/internal/banner"
	"kvblast/internal/blaster"
	"kvblast/internal/cli"
	"kvblast/internal/kvserver"
	"kvblast/internal/logging"
	"kvblast/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kvblast",
	Short: "kvblast - concurrent load generator for key-value HTTP services",
	Long: `
kvblast drives a fixed SET/GET/DELETE workload against a key-value
HTTP endpoint and reports round-trip latency.

Run without arguments to blast the configured endpoint, or start the
built-in key-value server with "kvblast serve".`,
	RunE: runBlast,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kvblast.yaml)")
	rootCmd.PersistentFlags().AddFlagSet(logging.Flags())

	rootCmd.Flags().StringP("url", "u", blaster.DefaultBaseURL, "Base URL of the key-value collection")
	rootCmd.Flags().IntP("workers", "w", blaster.DefaultWorkers, "Number of concurrent workers")
	rootCmd.Flags().IntP("iterations", "n", blaster.DefaultIterations, "Iterations per worker (3 requests each)")
	rootCmd.Flags().Duration("timeout", 0, "Per-request timeout (0 disables it)")

	viper.BindPFlags(rootCmd.Flags())
	viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".kvblast")
		}
	}
	viper.SetEnvPrefix("KVBLAST")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func runBlast(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewFromFlags()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg := blaster.Config{
		BaseURL:    viper.GetString("url"),
		Workers:    viper.GetInt("workers"),
		Iterations: viper.GetInt("iterations"),
		Timeout:    viper.GetDuration("timeout"),
	}

	cli.Start(cfg, logger)
	return nil
}

// --- Serve Subcommand ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the built-in key-value server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewFromFlags()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()

		bind, _ := cmd.Flags().GetString("bind")
		backend, _ := cmd.Flags().GetString("backend")

		store, err := openStore(cmd, backend)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return kvserver.New(store, backend, logger).Start(ctx, bind)
	},
}

func init() {
	serveCmd.Flags().StringP("bind", "b", ":4123", "Listen address")
	serveCmd.Flags().String("backend", "memory", "Storage backend (memory, bolt, redis)")
	serveCmd.Flags().String("db-path", "kvblast.db", "Database file for the bolt backend")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Address for the redis backend")
}

func openStore(cmd *cobra.Command, backend string) (storage.Store, error) {
	switch backend {
	case "memory":
		return storage.NewMemory(), nil
	case "bolt":
		path, _ := cmd.Flags().GetString("db-path")
		return storage.NewBolt(path)
	case "redis":
		addr, _ := cmd.Flags().GetString("redis-addr")
		return storage.NewRedis(cmd.Context(), addr)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
