/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

var (
	cfgFile  string
	logLevel string

	// cfg holds the merged configuration of the running command:
	// flag > NMTG_* environment > config file > default.
	cfg = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "nmtg",
	Short: "Evaluate machine translation output against validation corpora",
	Long: `nmtg loads a line-aligned validation corpus, scores translation
hypotheses with corpus BLEU, and keeps a history of evaluation runs.

Hypotheses can come from any external system (nmtg eval --results FILE)
or be produced through a translation engine (nmtg translate).

Every flag can also be set in a config file (--config) or through an
environment variable with the NMTG_ prefix, e.g. NMTG_VALID_SRC.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.GetString("log-level"))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.GetString("log-level"), err)
		}
		logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func initConfig(cmd *cobra.Command) error {
	cfg.SetEnvPrefix("NMTG")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if cfgFile != "" {
		cfg.SetConfigFile(cfgFile)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
