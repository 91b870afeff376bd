// Command ecsrtctl is the command-line entry point for ecsrt: a thin
// wrapper that loads configuration via Viper, wires up the slog-backed
// logger, and exposes subcommands for inspecting and exercising a
// registry's scheduler.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lzuwei/ecsrt/internal/config"
	"github.com/lzuwei/ecsrt/internal/logging"
)

var (
	cfgFile string
	vcfg    = viper.New()
	log     logging.Logger
)

// rootCmd is the base ecsrtctl command.
var rootCmd = &cobra.Command{
	Use:   "ecsrtctl",
	Short: "Inspect and drive an ecsrt registry",
	Long: `ecsrtctl loads a registry's configuration and runs its scheduler,
for local development and smoke-testing system declarations outside a
host application.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log = logging.New(&logging.Config{
			Level:  parseLevel(cfg.Log.Level),
			Format: cfg.Log.Format,
		})
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ecsrt.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = vcfg.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		vcfg.SetConfigFile(cfgFile)
	} else {
		vcfg.SetConfigName("ecsrt")
		vcfg.SetConfigType("yaml")
		vcfg.AddConfigPath(".")
	}
	return config.Load(vcfg)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
