// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vocalis-dev/vocalis/internal/secrets"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// Known provider names. Each is independently optional: a provider with no
// resolved credential is simply absent from the process's capability set.
const (
	ProviderAssemblyAI = "assemblyai"
	ProviderMurf       = "murf"
	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderPolly      = "polly"
)

// Config is the top-level Vocalis configuration.
type Config struct {
	Networking NetworkingConfig          `mapstructure:"networking"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Pipeline   PipelineConfig            `mapstructure:"pipeline"`
	Media      MediaConfig               `mapstructure:"media"`
}

// NetworkingConfig controls how Vocalis listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig holds the credential and tuning for one external provider.
// APIKey may be a literal value, env:NAME, or keyring://service/key.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`
	Region   string `mapstructure:"region"`
}

// PipelineConfig selects which provider serves each pipeline stage and
// bounds every provider call.
type PipelineConfig struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	STT         string        `mapstructure:"stt"`
	TTS         string        `mapstructure:"tts"`
	Generator   string        `mapstructure:"generator"` // "provider" or "provider/model"
}

// MediaConfig controls scratch storage for uploads and locally hosted audio.
type MediaConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// SetDefaults installs configuration defaults on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8787")
	v.SetDefault("pipeline.call_timeout", 10*time.Second)
	v.SetDefault("pipeline.stt", ProviderAssemblyAI)
	v.SetDefault("pipeline.tts", ProviderMurf)
	v.SetDefault("pipeline.generator", "google/gemini-2.5-flash")
	v.SetDefault("media.dir", "")
	v.SetDefault("media.base_url", "")

	v.SetDefault("providers.assemblyai.api_key", "env:ASSEMBLYAI_API_KEY")
	v.SetDefault("providers.assemblyai.endpoint", "https://api.assemblyai.com/v2")
	v.SetDefault("providers.murf.api_key", "env:MURF_API_KEY")
	v.SetDefault("providers.murf.endpoint", "https://api.murf.ai/v1/speech/generate")
	v.SetDefault("providers.murf.voice", "en-US-natalie")
	v.SetDefault("providers.google.api_key", "env:GEMINI_API_KEY")
	v.SetDefault("providers.openai.api_key", "env:OPENAI_API_KEY")
	v.SetDefault("providers.anthropic.api_key", "env:ANTHROPIC_API_KEY")
	v.SetDefault("providers.polly.region", "us-east-1")
	v.SetDefault("providers.polly.voice", "Joanna")
}

// SetupEnv binds VOCALIS_-prefixed environment variables
// (e.g. VOCALIS_NETWORKING_LISTEN, VOCALIS_PROVIDERS_MURF_API_KEY).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("VOCALIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vocerr.Errorf(vocerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vocerr.Errorf(vocerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// ResolveSecrets resolves every provider credential reference through store.
// A ref that fails to resolve is logged and cleared so the provider is
// treated as unconfigured, never fatal: a missing credential only disables
// its provider for the process lifetime.
func (c *Config) ResolveSecrets(store secrets.Store) {
	for name, pc := range c.Providers {
		if pc.APIKey == "" {
			continue
		}

		resolved, err := secrets.Resolve(store, pc.APIKey)
		if err != nil {
			slog.Warn("failed to resolve provider credential, disabling provider",
				"provider", name,
				"error", err,
			)
			resolved = ""
		}

		pc.APIKey = resolved
		c.Providers[name] = pc
	}
}

// Provider returns the configuration for the named provider.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validatePipeline()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	host, port, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be host:port, got %q", c.Networking.Listen))
		return errs
	}
	if host == "" {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: networking.listen host must not be empty in %q", c.Networking.Listen))
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port %q is not a valid port", port))
	}

	return errs
}

func (c *Config) validatePipeline() []error {
	var errs []error

	if c.Pipeline.CallTimeout <= 0 {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: pipeline.call_timeout must be positive, got %s", c.Pipeline.CallTimeout))
	}

	stt := map[string]bool{ProviderAssemblyAI: true}
	if name, _ := ParseRef(c.Pipeline.STT); !stt[name] {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: pipeline.stt must be one of [assemblyai], got %q", c.Pipeline.STT))
	}

	tts := map[string]bool{ProviderMurf: true, ProviderPolly: true}
	if name, _ := ParseRef(c.Pipeline.TTS); !tts[name] {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: pipeline.tts must be one of [murf, polly], got %q", c.Pipeline.TTS))
	}

	gen := map[string]bool{ProviderGoogle: true, ProviderOpenAI: true, ProviderAnthropic: true}
	if name, _ := ParseRef(c.Pipeline.Generator); !gen[name] {
		errs = append(errs, vocerr.Errorf(vocerr.CodeConfigValidateInvalidValue,
			"config: pipeline.generator must be one of [google, openai, anthropic], got %q", c.Pipeline.Generator))
	}

	return errs
}

// ParseRef splits a "provider/model" reference on the first "/".
// A bare provider name yields an empty model.
func ParseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
