// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vocalis-dev/vocalis/internal/config"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// NewRootCmd creates the root vocalis command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vocalis",
		Short:         "Vocalis voice interaction relay",
		Long:          "Vocalis relays recorded speech through transcription, generation, and synthesis providers and serves the result over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newVersionCmd(),
		newDoctorCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return vocerr.Errorf(vocerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover vocalis.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./vocalis binary in the project root.
		v.SetConfigName("vocalis")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vocalis")
		v.AddConfigPath("/etc/vocalis")
		// No config file is fine, defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return vocerr.Errorf(vocerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere, bootstrap a default to ~/.config/vocalis/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return vocerr.Errorf(vocerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return vocerr.Errorf(vocerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}
