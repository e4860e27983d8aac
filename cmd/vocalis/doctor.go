// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package main

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vocalis-dev/vocalis/internal/config"
	"github.com/vocalis-dev/vocalis/internal/secrets"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Report binary health, which providers have resolvable credentials, and the effective configuration with secrets redacted.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "%-12s vocalis %s (%s/%s)\n", "Binary:", version, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "%-12s %s/%s, Go %s\n", "Platform:", runtime.GOOS, runtime.GOARCH, runtime.Version())
	fmt.Fprintf(w, "%-12s %s\n", "Config:", checkConfigFile())

	cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ResolveSecrets(secrets.NewKeyringStore())

	fmt.Fprintln(w, "Providers:")
	for _, line := range providerReport(cfg) {
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w, "Effective config:")
	summary, err := yaml.Marshal(redactedSummary(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(summary))

	return nil
}

func checkConfigFile() string {
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

// providerReport lists every known provider with its credential state and
// the pipeline stage it is selected for, if any.
func providerReport(cfg *config.Config) []string {
	sttName, _ := config.ParseRef(cfg.Pipeline.STT)
	ttsName, _ := config.ParseRef(cfg.Pipeline.TTS)
	genName, _ := config.ParseRef(cfg.Pipeline.Generator)
	selected := map[string]string{
		sttName: "stt",
		ttsName: "tts",
		genName: "generator",
	}

	names := []string{
		config.ProviderAssemblyAI,
		config.ProviderMurf,
		config.ProviderGoogle,
		config.ProviderOpenAI,
		config.ProviderAnthropic,
		config.ProviderPolly,
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		state := "no credential"
		if cfg.Provider(name).APIKey != "" {
			state = "configured"
		}
		if name == config.ProviderPolly {
			// Polly uses the ambient AWS credential chain.
			state = "ambient credentials"
		}
		if stage, ok := selected[name]; ok {
			state += fmt.Sprintf(" (selected: %s)", stage)
		}
		lines = append(lines, fmt.Sprintf("%-12s %s", name, state))
	}
	return lines
}

// redactedSummary mirrors the effective config with every credential
// replaced, safe to print or paste into a bug report.
func redactedSummary(cfg *config.Config) any {
	type providerSummary struct {
		APIKey   string `yaml:"api_key,omitempty"`
		Endpoint string `yaml:"endpoint,omitempty"`
		Model    string `yaml:"model,omitempty"`
		Voice    string `yaml:"voice,omitempty"`
		Region   string `yaml:"region,omitempty"`
	}
	type summary struct {
		Networking struct {
			Listen      string   `yaml:"listen"`
			CORSOrigins []string `yaml:"cors_origins,omitempty"`
		} `yaml:"networking"`
		Pipeline struct {
			CallTimeout string `yaml:"call_timeout"`
			STT         string `yaml:"stt"`
			TTS         string `yaml:"tts"`
			Generator   string `yaml:"generator"`
		} `yaml:"pipeline"`
		Media struct {
			Dir     string `yaml:"dir,omitempty"`
			BaseURL string `yaml:"base_url,omitempty"`
		} `yaml:"media"`
		Providers map[string]providerSummary `yaml:"providers"`
	}

	var s summary
	s.Networking.Listen = cfg.Networking.Listen
	s.Networking.CORSOrigins = cfg.Networking.CORSOrigins
	s.Pipeline.CallTimeout = cfg.Pipeline.CallTimeout.String()
	s.Pipeline.STT = cfg.Pipeline.STT
	s.Pipeline.TTS = cfg.Pipeline.TTS
	s.Pipeline.Generator = cfg.Pipeline.Generator
	s.Media.Dir = cfg.Media.Dir
	s.Media.BaseURL = cfg.Media.BaseURL

	s.Providers = make(map[string]providerSummary, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		ps := providerSummary{
			Endpoint: pc.Endpoint,
			Model:    pc.Model,
			Voice:    pc.Voice,
			Region:   pc.Region,
		}
		if pc.APIKey != "" {
			ps.APIKey = "[redacted]"
		}
		s.Providers[name] = ps
	}
	return s
}
