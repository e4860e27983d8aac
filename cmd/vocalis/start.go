// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vocalis-dev/vocalis/internal/config"
	"github.com/vocalis-dev/vocalis/internal/media"
	"github.com/vocalis-dev/vocalis/internal/provider"
	"github.com/vocalis-dev/vocalis/internal/provider/anthropic"
	"github.com/vocalis-dev/vocalis/internal/provider/assemblyai"
	"github.com/vocalis-dev/vocalis/internal/provider/google"
	"github.com/vocalis-dev/vocalis/internal/provider/murf"
	"github.com/vocalis-dev/vocalis/internal/provider/openai"
	"github.com/vocalis-dev/vocalis/internal/provider/polly"
	"github.com/vocalis-dev/vocalis/internal/relay"
	"github.com/vocalis-dev/vocalis/internal/secrets"
	"github.com/vocalis-dev/vocalis/internal/server"
	"github.com/vocalis-dev/vocalis/internal/session"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vocalis relay",
		Long:  "Load configuration, resolve provider credentials, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	setupLogging(viper.GetBool("verbose"))

	cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ResolveSecrets(secrets.NewKeyringStore())

	store, err := media.NewStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("closing providers", "error", err)
		}
	}()

	sessions := session.NewMemoryStore()
	orchestrator := relay.New(registry, sessions,
		relay.WithCallTimeout(cfg.Pipeline.CallTimeout))

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	}, orchestrator, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stt, tts, gen := registry.Names()
	slog.Info("starting vocalis",
		"listen", cfg.Networking.Listen,
		"stt", stt,
		"tts", tts,
		"generators", gen,
	)

	return srv.Start(ctx)
}

// loadEffectiveConfig loads the discovered or flagged config file and layers
// any flag/env overrides Viper resolved on top.
func loadEffectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = viper.ConfigFileUsed()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if listen := viper.GetString("networking.listen"); listen != "" {
		cfg.Networking.Listen = listen
	}
	return cfg, nil
}

// buildRegistry constructs the process's capability set from whichever
// providers have credentials. A provider without a credential is simply
// absent; the pipeline stage it would have served degrades to fallback.
func buildRegistry(cfg *config.Config, store *media.Store) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	timeout := cfg.Pipeline.CallTimeout

	sttName, _ := config.ParseRef(cfg.Pipeline.STT)
	ttsName, _ := config.ParseRef(cfg.Pipeline.TTS)
	genName, genModel := config.ParseRef(cfg.Pipeline.Generator)

	if pc := cfg.Provider(config.ProviderAssemblyAI); pc.APIKey != "" {
		t, err := assemblyai.New(assemblyai.Config{
			APIKey:   pc.APIKey,
			Endpoint: pc.Endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		reg.RegisterTranscriber(t)
	}

	if pc := cfg.Provider(config.ProviderMurf); pc.APIKey != "" {
		s, err := murf.New(murf.Config{
			APIKey:   pc.APIKey,
			Endpoint: pc.Endpoint,
			Voice:    pc.Voice,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		reg.RegisterSynthesizer(s)
	}

	// Polly credentials come from the ambient AWS chain, so there is no
	// api_key to gate on. It is registered only when selected.
	if ttsName == config.ProviderPolly {
		pc := cfg.Provider(config.ProviderPolly)
		s, err := polly.New(polly.Config{
			Region:  pc.Region,
			Voice:   pc.Voice,
			Timeout: timeout,
		}, store)
		if err != nil {
			return nil, err
		}
		reg.RegisterSynthesizer(s)
	}

	if pc := cfg.Provider(config.ProviderGoogle); pc.APIKey != "" {
		g, err := google.New(google.Config{
			APIKey: pc.APIKey,
			Model:  generatorModel(config.ProviderGoogle, genName, genModel, pc),
		})
		if err != nil {
			return nil, err
		}
		reg.RegisterGenerator(g)
	}

	if pc := cfg.Provider(config.ProviderOpenAI); pc.APIKey != "" {
		g, err := openai.New(openai.Config{
			APIKey: pc.APIKey,
			Model:  generatorModel(config.ProviderOpenAI, genName, genModel, pc),
		})
		if err != nil {
			return nil, err
		}
		reg.RegisterGenerator(g)
	}

	if pc := cfg.Provider(config.ProviderAnthropic); pc.APIKey != "" {
		g, err := anthropic.New(anthropic.Config{
			APIKey: pc.APIKey,
			Model:  generatorModel(config.ProviderAnthropic, genName, genModel, pc),
		})
		if err != nil {
			return nil, err
		}
		reg.RegisterGenerator(g)
	}

	// Point each stage at its configured provider. A selected provider
	// that ended up unregistered (missing credential) is not fatal; the
	// stage serves fallbacks until it is configured.
	applyDefault := func(kind, name string, err error) {
		if err == nil {
			return
		}
		if vocerr.HasCode(err, vocerr.CodeProviderNotFound) {
			slog.Warn("configured provider has no credential, stage will serve fallbacks",
				"stage", kind,
				"provider", name,
			)
			return
		}
		slog.Warn("setting default provider", "stage", kind, "error", err)
	}
	applyDefault("stt", sttName, reg.SetDefaults(sttName, "", ""))
	applyDefault("tts", ttsName, reg.SetDefaults("", ttsName, ""))
	applyDefault("generator", genName, reg.SetDefaults("", "", genName))

	return reg, nil
}

// generatorModel picks the model for one generator provider: the pipeline
// selection wins for the selected provider, the per-provider config
// otherwise, and empty falls through to the adapter default.
func generatorModel(name, selected, selectedModel string, pc config.ProviderConfig) string {
	if name == selected && selectedModel != "" {
		return selectedModel
	}
	return pc.Model
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
