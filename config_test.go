package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghosttab/engine"
	"ghosttab/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(configEnv, "")
	config, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeConfig(t, `
mode: manual
provider: fim
provider_url: http://yaml:9000
keys:
  accept: <C-y>
fim_tokens:
  prefix: "<PRE>"
`)
	t.Setenv(configEnv, `{"provider_url": "http://env:9001", "log_level": "debug"}`)

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "manual", config.Mode)
	assert.Equal(t, "fim", config.Provider)
	assert.Equal(t, "http://env:9001", config.ProviderURL, "env wins over file")
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "<C-y>", config.Keys.Accept)
	assert.Equal(t, "<C-Right>", config.Keys.AcceptWord, "unset keys keep defaults")
	assert.Equal(t, "<PRE>", config.FIMTokens.Prefix)
	assert.Equal(t, "<|fim_suffix|>", config.FIMTokens.Suffix)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv(configEnv, "")
	_, err := loadConfig(writeConfig(t, "mode: [unclosed"))
	assert.Error(t, err)

	t.Setenv(configEnv, "{not json")
	_, err = loadConfig("")
	assert.ErrorContains(t, err, configEnv)
}

func TestLoadConfig_APIKeyEnv(t *testing.T) {
	t.Setenv(configEnv, `{"api_key_env": "GHOSTTAB_TEST_KEY"}`)
	t.Setenv("GHOSTTAB_TEST_KEY", "sk-secret")

	config, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", config.APIKey)
	assert.NotContains(t, config.String(), "sk-secret")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "sometimes" }},
		{"provider", func(c *Config) { c.Provider = "copilot" }},
		{"compression", func(c *Config) { c.Compression = "gzip" }},
		{"url", func(c *Config) { c.ProviderURL = "" }},
		{"delay", func(c *Config) { c.DelayBeforeFetching = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	config := DefaultConfig()
	config.Mode = "manual"
	config.DelayBeforeFetching = 250
	config.Provider = "fim"
	config.Compression = "zstd"

	ec, err := config.engineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.ModeManual, ec.Mode)
	assert.Equal(t, 250*time.Millisecond, ec.DelayBeforeFetching)
	assert.Equal(t, 10*time.Second, ec.FetchTimeout)
	assert.Equal(t, "<Tab>", ec.Keys.Accept)

	pc := config.providerConfig()
	assert.Equal(t, types.ProviderTypeFIM, pc.Type)
	assert.Equal(t, "zstd", pc.Compression)
	assert.Equal(t, config.FIMTokens, pc.FIMTokens)
}

func TestNewProvider(t *testing.T) {
	config := DefaultConfig()

	p, err := newProvider(config.providerConfig())
	require.NoError(t, err)
	assert.Equal(t, "inline", p.Name)

	config.Provider = "fim"
	p, err = newProvider(config.providerConfig())
	require.NoError(t, err)
	assert.Equal(t, "fim", p.Name)

	config.Provider = "zeta"
	_, err = newProvider(config.providerConfig())
	assert.Error(t, err)
}

func TestRootOptions_FlagsOverrideOnlyWhenSet(t *testing.T) {
	t.Setenv(configEnv, "")
	cmd := newRootCmd()
	path := writeConfig(t, "provider_model: from-file\nmode: manual\n")
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--model", "from-flag"}))

	opts := &rootOptions{configPath: path, model: "from-flag"}
	config, err := opts.load(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", config.ProviderModel)
	assert.Equal(t, "manual", config.Mode, "unset --mode keeps the file value")
}
