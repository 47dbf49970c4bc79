// Package cmd provides CLI commands for the retake tool.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retakehq/retake/internal/cmd/globals"
	"github.com/retakehq/retake/internal/cmd/output"
	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/logging"
)

var (
	configFile  string
	globalFlags *globals.Flags

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
	// BuiltBy is the build system identifier.
	BuiltBy = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "retake",
	Short: "Takeout metadata reconciliation CLI",
	Long: `Retake repairs Google Takeout photo exports. Takeout strips much of a
photo's metadata into JSON sidecar files; retake compares each media
file's embedded EXIF/QuickTime/XMP tags against its sidecar and injects
the capture time, GPS position, people tags, favorite rating, and
description the file is missing.

Fields are reconciled independently: values already on disk are left
alone, disagreements are reported as conflicts and never overwritten,
and a dry run shows exactly what an apply would do.`,
	PersistentPreRunE: setupCommand,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(version, commit, date, builtBy string) {
	Version = version
	Commit = commit
	Date = date
	BuiltBy = builtBy

	// Interrupts cancel the run; in-flight files finish or abort cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.retake.yaml)")
	globalFlags = globals.AddFlags(rootCmd)

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("Failed to bind verbose flag: %v", err))
	}
	if err := viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet")); err != nil {
		panic(fmt.Sprintf("Failed to bind quiet flag: %v", err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in the working directory first, then home.
		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".retake")
	}

	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	setConfigDefaults()

	// RETAKE_EXIFTOOL_PATH and friends override config file values.
	viper.SetEnvPrefix("RETAKE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil && globalFlags != nil && globalFlags.Verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// setConfigDefaults registers the full configuration key set so config
// files, environment variables, and flags all resolve the same way.
func setConfigDefaults() {
	viper.SetDefault("exiftool.path", "")
	viper.SetDefault("exiftool.timeout", 0)
	viper.SetDefault("report.dir", constants.DefaultReportDir)
	viper.SetDefault("report.backup", true)
	viper.SetDefault("inject.workers", constants.DefaultWorkers)
	viper.SetDefault("inject.mtime", true)
	viper.SetDefault("reconcile.strict_altitude", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "auto")
}

// setupCommand is called before any command runs.
func setupCommand(_ *cobra.Command, _ []string) error {
	// Validate an explicit output format early; detect one otherwise.
	if globalFlags.Output == "" {
		globalFlags.Output = string(output.DetectFormat(""))
		return nil
	}
	if _, err := output.ParseFormat(globalFlags.Output); err != nil {
		return err
	}
	return nil
}

// configureLogging sets up the logging system based on configuration.
func configureLogging() {
	level := viper.GetString("log.level")
	if globalFlags != nil && globalFlags.Verbose || viper.GetBool("verbose") {
		level = "debug"
	}
	if globalFlags != nil && globalFlags.Quiet || viper.GetBool("quiet") {
		level = "warn"
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = envLevel
	}

	format := viper.GetString("log.format")
	if envFormat := os.Getenv("LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}

	noColor := os.Getenv("NO_COLOR") != ""
	if globalFlags != nil && globalFlags.NoColor {
		noColor = true
	}

	logging.Configure(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    "stderr",
		NoColor:   noColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

// loadEnvFiles loads environment variables from .env files. godotenv
// never overwrites variables that are already set, so the shell
// environment wins over .env.local, which wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err == nil {
			if globalFlags != nil && globalFlags.Verbose {
				fmt.Fprintf(os.Stderr, "Loaded %s\n", envFile)
			}
		}
	}
}
