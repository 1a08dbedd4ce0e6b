package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"fastcal/internal/clock"
	"fastcal/internal/config"
	appLog "fastcal/internal/log"
	"fastcal/internal/prefs"
	"fastcal/internal/schedule"
)

const version = "0.3.0"

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"serve", "run the web calendar and JSON API", runServe},
	{"watch", "print the live countdown for one sub-region", runWatch},
	{"tui", "interactive terminal picker and countdown", runTUI},
	{"ics", "write the schedule of one sub-region as iCalendar", runICS},
	{"capture", "render /calendar to PNG or PDF with headless Chromium", runCapture},
	{"regions", "list regions, sub-regions and dataset coverage", runRegions},
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		printUsage()
		return
	}
	if os.Args[1] == "--version" || os.Args[1] == "version" {
		fmt.Println("fastcal", version)
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == os.Args[1] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := cmd.run(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		appLog.Error("command failed", err, "command", cmd.name)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "fastcal %s: fasting schedule with live sehri/iftar countdown\n\nUsage:\n  fastcal <command> [flags]\n\nCommands:\n", version)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'fastcal <command> --help' for command flags.\n")
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	logLevel   string
}

func newFlagSet(name string, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&common.configPath, "config", "c", "./fastcal.yaml", "path to config file")
	fs.StringVar(&common.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	return fs
}

// app is the state every command shares after config and dataset load.
type app struct {
	cfg    *config.Config
	source *clock.Source
	store  *schedule.Store
	data   schedule.Source
}

// loadApp loads config and the dataset. A dataset failure is logged and
// recorded in the store; callers decide whether it is fatal.
func loadApp(ctx context.Context, common commonFlags) (*app, error) {
	cfg, err := config.Load(common.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", common.configPath, err)
	}
	level := cfg.LogLevel
	if common.logLevel != "" {
		level = common.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	a := &app{
		cfg:    cfg,
		source: clock.NewSource(clock.Real(), cfg.Location()),
		store:  schedule.NewStore(nil),
		data: schedule.Source{
			Path:     cfg.Data.Path,
			URL:      cfg.Data.URL,
			CacheDir: cfg.Data.CacheDir,
			Language: cfg.Language(),
		},
	}

	appLog.Info("effective config",
		"config", common.configPath,
		"utc_offset", cfg.UTCOffset,
		"collation", cfg.Collation,
		"dataset", a.data.String(),
		"refresh", cfg.RefreshCron,
		"prefs", cfg.Prefs.Backend,
	)

	_ = a.store.Reload(ctx, a.data)
	return a, nil
}

// repo returns the loaded dataset or the load error.
func (a *app) repo() (*schedule.Repository, error) {
	if r := a.store.Current(); r != nil {
		return r, nil
	}
	if le := a.store.Err(); le != nil {
		return nil, le
	}
	return nil, errors.New("dataset not loaded")
}

// openPrefs opens the configured selection store. The returned func
// releases it.
func (a *app) openPrefs(ctx context.Context) (prefs.Store, func(), error) {
	p := a.cfg.Prefs
	switch p.Backend {
	case "memory":
		return prefs.NewMemory(), func() {}, nil
	case "redis":
		store, client, err := prefs.DialRedis(ctx, p.RedisAddr, p.RedisPassword, p.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		store, err := prefs.OpenFile(p.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
