// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the market-research CLI. It drives
// the research engine: candidate discovery, multi-hop page research,
// spoken-answer composition and the research archive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/config"
	"github.com/pdiddy/market-research/internal/logging"
	"github.com/pdiddy/market-research/internal/secrets"
	"github.com/pdiddy/market-research/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Resolved in PersistentPreRunE and shared by every subcommand.
var (
	appConfig types.AppConfig
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "market-research",
	Short: "Multi-hop web research for market questions",
	Long: `market-research answers market questions from the live web. It renders
candidate news pages in headless Chrome, extracts their article text, scores
it against the question and, when the first batch of pages leaves confidence
low, researches a second batch.

Candidates come from --url flags, a saved candidate file, or Brave Search.
Results can be printed, composed into a short spoken answer, or saved to a
local SQLite archive for later search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		s.Apply(viper.GetViper())

		appConfig, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err = logging.New(appConfig.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./market-research.yaml or ~/.config/market-research/market-research.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "write JSON logs to a rotating file instead of stderr")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("market-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "market-research"))
		}
	}

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// commandContext is cancelled on interrupt so a research run can return
// what it has accumulated.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
