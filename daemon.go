package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/neovim/go-client/nvim"

	"ghosttab/buffer"
	"ghosttab/engine"
	"ghosttab/logger"
	"ghosttab/metrics"
	"ghosttab/provider"
)

// Idle shutdown: the first check waits for a client, later checks are
// shorter once everyone has left.
const (
	idleTimeout      = 30 * time.Second
	idleRecheck      = 5 * time.Second
	debugIdleRecheck = 1 * time.Second
)

type Daemon struct {
	config       Config
	engineConfig engine.Config
	provider     *provider.Provider
	listener     net.Listener
	socketPath   string
	pidPath      string
	dataDir      string
	clientCount  int64
	sessions     sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	stopOnce     sync.Once
}

func runDaemon(config Config) error {
	ll, err := setupLogger(getLogPath(), config.LogLevel)
	if err != nil {
		return err
	}
	defer ll.Close()

	logger.Info("config: %s", config)

	daemon, err := NewDaemon(config)
	if err != nil {
		logger.Error("error creating daemon: %v", err)
		return err
	}
	if err := daemon.Start(); err != nil {
		logger.Error("error starting daemon: %v", err)
		return err
	}
	return nil
}

func NewDaemon(config Config) (*Daemon, error) {
	p, err := newProvider(config.providerConfig())
	if err != nil {
		return nil, err
	}

	engineConfig, err := config.engineConfig()
	if err != nil {
		return nil, err
	}
	engineConfig.OnFetchError = func(err error) {
		logger.Warn("fetch failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		config:       config,
		engineConfig: engineConfig,
		provider:     p,
		socketPath:   getSocketPath(),
		pidPath:      getPidPath(),
		dataDir:      execDir(),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

func (d *Daemon) Start() error {
	d.writePidFile()
	defer d.removePidFile()

	if err := d.setupSocket(); err != nil {
		return err
	}
	defer d.cleanup()

	logger.Info("daemon listening on socket: %s", d.socketPath)

	d.setupShutdownHandling()
	go d.acceptConnections()
	go d.monitorIdleShutdown()

	<-d.ctx.Done()
	logger.Info("daemon shutting down...")
	d.sessions.Wait()
	return nil
}

func (d *Daemon) setupSocket() error {
	os.Remove(d.socketPath)

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return err
	}
	d.listener = listener
	return nil
}

func (d *Daemon) setupShutdownHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			d.Stop()
		case <-d.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				logger.Error("error accepting connection: %v", err)
				continue
			}
		}

		atomic.AddInt64(&d.clientCount, 1)
		logger.Info("new client connected, total clients: %d", atomic.LoadInt64(&d.clientCount))
		d.sessions.Add(1)
		go d.handleConnection(conn)
	}
}

// handleConnection runs one Neovim client: its own host, engine and
// tracker, alive until the connection closes or the daemon stops.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer d.sessions.Done()
	defer conn.Close()
	defer func() {
		atomic.AddInt64(&d.clientCount, -1)
		logger.Info("client disconnected, remaining clients: %d", atomic.LoadInt64(&d.clientCount))
	}()

	n, err := nvim.New(conn, conn, conn, logger.Printf)
	if err != nil {
		logger.Error("error creating nvim client: %v", err)
		return
	}

	host := buffer.New(buffer.Config{NsID: d.config.NsID, Highlight: d.config.Highlight})
	host.SetClient(n)

	eng, err := engine.NewEngine(host, d.provider.Fetch, d.engineConfig, engine.SystemClock)
	if err != nil {
		logger.Error("error creating engine: %v", err)
		return
	}
	tracker := metrics.NewTracker(d.config.MetricsURL, "neovim", d.dataDir)
	eng.SetTracker(tracker)
	defer tracker.Close()

	if err := host.RegisterHandlers(eng); err != nil {
		logger.Error("error registering handlers: %v", err)
		return
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- n.Serve() }()

	if err := host.InstallKeymaps(d.engineConfig.Keys); err != nil {
		logger.Error("error installing keymaps: %v", err)
		n.Close()
		<-serveErr
		return
	}

	ctx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	eng.Start(ctx)
	defer eng.Stop()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, io.EOF) {
			logger.Error("error serving connection: %v", err)
		}
	case <-d.ctx.Done():
		n.Close()
		<-serveErr
	}
}

func (d *Daemon) monitorIdleShutdown() {
	if d.config.DebugImmediateShutdown {
		ticker := time.NewTicker(debugIdleRecheck)
		defer ticker.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				if atomic.LoadInt64(&d.clientCount) == 0 {
					logger.Info("debug mode: no clients connected, shutting down daemon immediately")
					d.Stop()
					return
				}
			}
		}
	}

	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-idleTimer.C:
			if atomic.LoadInt64(&d.clientCount) == 0 {
				logger.Info("no clients connected for timeout period, shutting down daemon")
				d.Stop()
				return
			}
		}

		if atomic.LoadInt64(&d.clientCount) == 0 {
			idleTimer.Reset(idleRecheck)
		} else {
			idleTimer.Reset(idleTimeout)
		}
	}
}

func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		if d.listener != nil {
			d.listener.Close()
		}
		d.cancel()
	})
}

func (d *Daemon) cleanup() {
	os.Remove(d.socketPath)
}

func (d *Daemon) writePidFile() {
	pid := os.Getpid()
	if err := os.MkdirAll(filepath.Dir(d.pidPath), 0755); err != nil {
		logger.Warn("could not create PID directory: %v", err)
	}
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		logger.Warn("could not write PID file: %v", err)
	}
	logger.Info("server started with PID %d", pid)
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove PID file: %v", err)
	}
}
