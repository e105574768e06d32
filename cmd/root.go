package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/demostf/go-client/config"
	"github.com/demostf/go-client/demostf"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *demostf.Client

	version = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "demostf",
	Short: "Browse, upload and download demos from demos.tf",
	Long: `demostf is a CLI for the demos.tf demo hosting service. It can list and
search demos, inspect single demos and their chat logs, upload new demos and
download demo files with hash verification.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version information shown by --version.
func SetVersion(v, buildTime string) {
	version = v
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, buildTime)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
}

// initializeApp initializes the configuration and the api client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	opts := []demostf.Option{
		demostf.WithLogger(logger),
		demostf.WithUserAgent("demostf-cli/" + version),
	}
	if cfg.Server.Key != "" {
		opts = append(opts, demostf.WithAccessKey(cfg.Server.Key))
	}

	client, err = demostf.New(cfg.Server.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create demos.tf client: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
