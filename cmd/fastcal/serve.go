package main

import (
	"context"

	appLog "fastcal/internal/log"
	"fastcal/internal/sched"
	"fastcal/internal/web"
)

func runServe(ctx context.Context, args []string) error {
	var common commonFlags
	var listen string
	fs := newFlagSet("serve", &common)
	fs.StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}
	if listen != "" {
		a.cfg.Listen = listen
	}

	ps, closePrefs, err := a.openPrefs(ctx)
	if err != nil {
		return err
	}
	defer closePrefs()

	scheduler := sched.New(a.source.Location())
	if a.cfg.RefreshCron != "" {
		if _, err := scheduler.Cron(a.cfg.RefreshCron, func() {
			_ = a.store.Reload(ctx, a.data)
		}); err != nil {
			return err
		}
		appLog.Info("dataset refresh scheduled", "spec", a.cfg.RefreshCron)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := web.NewServer(a.cfg, a.store, a.source, ps)
	return srv.Run(ctx)
}
