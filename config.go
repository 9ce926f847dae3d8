package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ghosttab/engine"
	"ghosttab/types"
)

// configEnv holds a JSON config, usually set by the editor plugin.
const configEnv = "GHOSTTAB_CONFIG"

type KeysConfig struct {
	Accept     string `json:"accept" yaml:"accept"`
	AcceptWord string `json:"accept_word" yaml:"accept_word"`
	Trigger    string `json:"trigger" yaml:"trigger"`
	Cancel     string `json:"cancel" yaml:"cancel"`
}

type Config struct {
	Mode                   string               `json:"mode" yaml:"mode"`                                   // automatic | manual
	DelayBeforeFetching    int                  `json:"delay_before_fetching" yaml:"delay_before_fetching"` // in milliseconds
	FetchTimeout           int                  `json:"fetch_timeout" yaml:"fetch_timeout"`                 // in milliseconds, 0 = none
	Keys                   KeysConfig           `json:"keys" yaml:"keys"`
	LogLevel               string               `json:"log_level" yaml:"log_level"` // trace, debug, info, warn, error
	Provider               string               `json:"provider" yaml:"provider"`   // inline | fim
	ProviderURL            string               `json:"provider_url" yaml:"provider_url"`
	CompletionPath         string               `json:"completion_path" yaml:"completion_path"`
	ProviderModel          string               `json:"provider_model" yaml:"provider_model"`
	ProviderTemperature    float64              `json:"provider_temperature" yaml:"provider_temperature"`
	ProviderMaxTokens      int                  `json:"provider_max_tokens" yaml:"provider_max_tokens"`
	ProviderTopK           int                  `json:"provider_top_k" yaml:"provider_top_k"`
	MaxContextTokens       int                  `json:"max_context_tokens" yaml:"max_context_tokens"`
	MaxLines               int                  `json:"max_lines" yaml:"max_lines"`
	FIMTokens              types.FIMTokenConfig `json:"fim_tokens" yaml:"fim_tokens"`
	Compression            string               `json:"compression" yaml:"compression"` // "", br, zstd
	APIKey                 string               `json:"api_key" yaml:"api_key"`
	APIKeyEnv              string               `json:"api_key_env" yaml:"api_key_env"` // read the key from this variable
	MetricsURL             string               `json:"metrics_url" yaml:"metrics_url"`
	NsID                   int                  `json:"ns_id" yaml:"ns_id"`
	Highlight              string               `json:"highlight" yaml:"highlight"`
	DebugImmediateShutdown bool                 `json:"debug_immediate_shutdown" yaml:"debug_immediate_shutdown"`
}

func DefaultConfig() Config {
	keys := engine.DefaultConfig().Keys
	return Config{
		Mode:                "automatic",
		DelayBeforeFetching: 1000,
		FetchTimeout:        10000,
		Keys: KeysConfig{
			Accept:     keys.Accept,
			AcceptWord: keys.AcceptWord,
			Trigger:    keys.Trigger,
			Cancel:     keys.Cancel,
		},
		LogLevel:            "info",
		Provider:            string(types.ProviderTypeInline),
		ProviderURL:         "http://localhost:8000",
		ProviderTemperature: 0.0,
		ProviderMaxTokens:   64,
		MaxContextTokens:    2048,
		MaxLines:            8,
		FIMTokens:           types.DefaultFIMTokens(),
		Highlight:           "Comment",
	}
}

// loadConfig layers, later wins: defaults, the YAML file at path (a missing
// file is not an error), the JSON in GHOSTTAB_CONFIG.
func loadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if err := mergeYAMLFile(&config, path); err != nil {
		return config, err
	}

	if raw := strings.TrimSpace(os.Getenv(configEnv)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			return config, fmt.Errorf("invalid %s: %w", configEnv, err)
		}
	}

	if config.APIKey == "" && config.APIKeyEnv != "" {
		config.APIKey = os.Getenv(config.APIKeyEnv)
	}
	return config, nil
}

func mergeYAMLFile(config *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config %s: %w", expanded, err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	switch {
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	case filepath.IsAbs(path):
		return path, nil
	default:
		return filepath.Abs(path)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := engine.ParseMode(c.Mode); err != nil {
		return err
	}
	switch types.ProviderType(c.Provider) {
	case types.ProviderTypeInline, types.ProviderTypeFIM:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Compression {
	case "", "br", "zstd":
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	if c.ProviderURL == "" {
		return fmt.Errorf("provider_url is required")
	}
	if c.DelayBeforeFetching < 0 || c.FetchTimeout < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

func (c Config) engineConfig() (engine.Config, error) {
	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Mode:                mode,
		DelayBeforeFetching: time.Duration(c.DelayBeforeFetching) * time.Millisecond,
		FetchTimeout:        time.Duration(c.FetchTimeout) * time.Millisecond,
		Keys: engine.Keys{
			Accept:     c.Keys.Accept,
			AcceptWord: c.Keys.AcceptWord,
			Trigger:    c.Keys.Trigger,
			Cancel:     c.Keys.Cancel,
		},
	}, nil
}

func (c Config) providerConfig() *types.ProviderConfig {
	return &types.ProviderConfig{
		Type:                types.ProviderType(c.Provider),
		ProviderURL:         c.ProviderURL,
		CompletionPath:      c.CompletionPath,
		APIKey:              c.APIKey,
		Compression:         c.Compression,
		ProviderModel:       c.ProviderModel,
		ProviderTemperature: c.ProviderTemperature,
		ProviderMaxTokens:   c.ProviderMaxTokens,
		ProviderTopK:        c.ProviderTopK,
		MaxContextTokens:    c.MaxContextTokens,
		MaxLines:            c.MaxLines,
		FIMTokens:           c.FIMTokens,
	}
}

// String is the config for logs, with the API key masked.
func (c Config) String() string {
	type plain Config
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return fmt.Sprintf("%+v", plain(c))
}
