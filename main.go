package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"ghosttab/logger"
	"ghosttab/provider"
	"ghosttab/provider/fim"
	"ghosttab/provider/inline"
	"ghosttab/types"
)

type rootOptions struct {
	configPath string

	// overrides, applied only when the flag is set
	mode        string
	logLevel    string
	provider    string
	providerURL string
	model       string
	compression string
}

// applyFlags layers explicitly set flags over the loaded config.
func (o *rootOptions) applyFlags(cmd *cobra.Command, config *Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		config.Mode = o.mode
	}
	if flags.Changed("log-level") {
		config.LogLevel = o.logLevel
	}
	if flags.Changed("provider") {
		config.Provider = o.provider
	}
	if flags.Changed("provider-url") {
		config.ProviderURL = o.providerURL
	}
	if flags.Changed("model") {
		config.ProviderModel = o.model
	}
	if flags.Changed("compression") {
		config.Compression = o.compression
	}
}

func (o *rootOptions) load(cmd *cobra.Command) (Config, error) {
	config, err := loadConfig(o.configPath)
	if err != nil {
		return config, err
	}
	o.applyFlags(cmd, &config)
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "ghosttab",
		Short:         "Inline ghost-text suggestions for Neovim",
		Long:          "Without a subcommand ghosttab relays stdio to the daemon, starting it when needed. Neovim runs it as an RPC job.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", defaultConfigPath(), "path to a YAML config file")
	pf.StringVar(&opts.mode, "mode", "", "fetch mode: automatic|manual")
	pf.StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error")
	pf.StringVar(&opts.provider, "provider", "", "completion provider: inline|fim")
	pf.StringVar(&opts.providerURL, "provider-url", "", "base URL of the completion server")
	pf.StringVar(&opts.model, "model", "", "model name sent to the completion server")
	pf.StringVar(&opts.compression, "compression", "", "request body compression: br|zstd")

	rootCmd.AddCommand(newDaemonCmd(opts), newDemoCmd(opts))
	return rootCmd
}

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the daemon serving Neovim connections on the Unix socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runDaemon(config)
		},
	}
}

func newDemoCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Try suggestions in a small terminal editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runDemo(config, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "initial buffer contents")
	return cmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ghosttab", "config.yaml")
}

// Files next to the executable

func execDir() string {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("error getting executable path: %v", err)
	}
	return filepath.Dir(execPath)
}

func getLogPath() string    { return filepath.Join(execDir(), "ghosttab.log") }
func getSocketPath() string { return filepath.Join(execDir(), "ghosttab.sock") }
func getPidPath() string    { return filepath.Join(execDir(), "ghosttab.pid") }

// setupLogger sends the global logger and the standard log package to path.
// Caller must Close the result.
func setupLogger(path, logLevel string) (*logger.LimitedLogger, error) {
	ll, err := logger.Init(path, logger.ParseLogLevel(logLevel))
	if err != nil {
		return nil, err
	}
	log.SetOutput(ll)
	return ll, nil
}

func isDaemonRunning() (bool, int) {
	data, err := os.ReadFile(getPidPath())
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	// On Unix, Signal(0) checks if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil, pid
}

// newProvider selects the completion provider named in config.
func newProvider(config *types.ProviderConfig) (*provider.Provider, error) {
	client, err := provider.NewClient(config)
	if err != nil {
		return nil, err
	}
	switch config.Type {
	case types.ProviderTypeInline:
		return inline.NewProvider(config, client), nil
	case types.ProviderTypeFIM:
		return fim.NewProvider(config, client), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Type)
	}
}

func main() {
	// older plugin versions spawn the daemon with --daemon
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--daemon" {
		args[0] = "daemon"
	}

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		fmt.Fprintf(os.Stderr, "ghosttab: %v\n", err)
		os.Exit(1)
	}
}
