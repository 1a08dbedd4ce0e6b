package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"fastcal/internal/countdown"
	appLog "fastcal/internal/log"
	"fastcal/internal/tui"
)

func runTUI(ctx context.Context, args []string) error {
	var common commonFlags
	var logFile string
	fs := newFlagSet("tui", &common)
	fs.StringVar(&logFile, "log-file", "./var/fastcal-tui.log", `write logs here while the UI owns the terminal ("" discards them)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The alt-screen is corrupted by stray log lines.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	appLog.SetOutput(logOut)
	defer appLog.SetOutput(os.Stderr)

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}

	ps, closePrefs, err := a.openPrefs(ctx)
	if err != nil {
		return err
	}
	defer closePrefs()

	opts := tui.Options{
		Prefs:  ps,
		Labels: a.cfg.Labels,
	}
	repo, loadErr := a.repo()
	if loadErr != nil {
		opts.LoadErr = loadErr
	} else {
		opts.Repo = repo
		opts.Session = countdown.NewSession(repo, a.source)
	}

	program := tea.NewProgram(tui.New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if opts.Session != nil {
		opts.Session.Close()
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}
