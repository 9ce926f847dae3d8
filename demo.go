package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"ghosttab/engine"
	"ghosttab/logger"
	"ghosttab/metrics"
	"ghosttab/tui"
)

// runDemo hosts one engine in the terminal editor. The terminal belongs to
// the UI, so logs go to ghosttab-demo.log in the temp dir.
func runDemo(config Config, file string) error {
	ll, err := setupLogger(filepath.Join(os.TempDir(), "ghosttab-demo.log"), config.LogLevel)
	if err != nil {
		return err
	}
	defer ll.Close()

	var content string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		content = string(data)
	}

	p, err := newProvider(config.providerConfig())
	if err != nil {
		return err
	}
	engineConfig, err := config.engineConfig()
	if err != nil {
		return err
	}
	engineConfig.OnFetchError = func(err error) {
		logger.Warn("fetch failed: %v", err)
	}

	editor := tui.NewEditor(content)
	eng, err := engine.NewEngine(editor, p.Fetch, engineConfig, engine.SystemClock)
	if err != nil {
		return err
	}
	tracker := metrics.NewTracker(config.MetricsURL, "tui", execDir())
	defer tracker.Close()
	eng.SetTracker(tracker)

	prog := tea.NewProgram(tui.NewModel(editor, eng, engineConfig.Keys), tea.WithAltScreen())
	// Send blocks until the program reads it and the engine may hold its
	// lock here, so hand it off.
	editor.OnChange(func() { go prog.Send(tui.RefreshMsg{}) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	defer eng.Stop()

	_, err = prog.Run()
	return err
}
