package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"ghosttab/logger"
)

// Client relays Neovim's stdio job channel to the daemon socket.
type Client struct {
	socketPath string
	configPath string
}

func NewClient(configPath string) *Client {
	return &Client{
		socketPath: getSocketPath(),
		configPath: configPath,
	}
}

// runClient is the default command. Stdout belongs to the RPC stream, so
// nothing else may be written to it.
func runClient(opts *rootOptions) error {
	client := NewClient(opts.configPath)

	if err := client.EnsureDaemonRunning(); err != nil {
		return fmt.Errorf("error ensuring daemon is running: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("error connecting to daemon: %w", err)
	}
	return nil
}

func (c *Client) Connect() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		io.Copy(conn, os.Stdin)
		conn.Close()
	}()

	io.Copy(os.Stdout, conn)
	return nil
}

func (c *Client) EnsureDaemonRunning() error {
	running, pid := isDaemonRunning()
	if running {
		logger.Debug("daemon already running with PID %d", pid)
		return nil
	}

	return c.startDaemon()
}

func (c *Client) startDaemon() error {
	logger.Debug("starting daemon...")

	args := []string{os.Args[0], "daemon"}
	if c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}

	// the daemon inherits GHOSTTAB_CONFIG through the environment
	_, err := os.StartProcess(os.Args[0], args, &os.ProcAttr{
		Env: os.Environ(),
		Files: []*os.File{
			nil, // stdin
			nil, // stdout
			nil, // stderr
		},
	})
	if err != nil {
		return err
	}

	return c.waitForDaemon()
}

// waitForDaemon polls for the socket for up to 5 seconds.
func (c *Client) waitForDaemon() error {
	for range 50 {
		if running, _ := isDaemonRunning(); running {
			if _, err := os.Stat(c.socketPath); err == nil {
				logger.Debug("daemon started successfully")
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon failed to start within timeout")
}
