package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"fastcal/internal/config"
	"fastcal/internal/countdown"
	"fastcal/internal/prefs"
	"fastcal/internal/sched"
)

const watchClientID = "watch"

func runWatch(ctx context.Context, args []string) error {
	var common commonFlags
	var region, subRegion string
	var once bool
	fs := newFlagSet("watch", &common)
	fs.StringVarP(&region, "region", "r", "", "region name (default: remembered or first)")
	fs.StringVarP(&subRegion, "sub-region", "s", "", "sub-region name (default: remembered or first)")
	fs.BoolVar(&once, "once", false, "print one line and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}
	repo, err := a.repo()
	if err != nil {
		fmt.Fprintln(os.Stdout, loadErrorLine(a.cfg.Labels))
		return err
	}

	ps, closePrefs, err := a.openPrefs(ctx)
	if err != nil {
		return err
	}
	defer closePrefs()

	region, subRegion = watchSelection(ctx, repo, ps, region, subRegion)

	out := os.Stdout
	tty := term.IsTerminal(int(out.Fd()))

	if once {
		s := countdown.NewSession(repo, a.source)
		if _, err := s.SelectSubRegion(region, subRegion); err != nil {
			return err
		}
		fmt.Fprintln(out, countdownLine(a.cfg.Labels, region, subRegion, s.Tick()))
		return nil
	}

	scheduler := sched.New(a.source.Location())
	scheduler.Start()
	defer scheduler.Stop()

	s := countdown.NewSession(repo, a.source,
		countdown.WithScheduler(scheduler),
		countdown.OnTick(func(r countdown.Result) {
			printLine(out, tty, countdownLine(a.cfg.Labels, region, subRegion, r))
		}),
	)
	defer s.Close()

	sel, err := s.SelectSubRegion(region, subRegion)
	if err != nil {
		return err
	}
	if err := prefs.Remember(ctx, ps, watchClientID, region, subRegion); err != nil {
		fmt.Fprintf(os.Stderr, "warning: selection not saved: %v\n", err)
	}
	if len(sel.Sequence) == 0 {
		fmt.Fprintf(os.Stderr, "no schedule for %q / %q\n", region, subRegion)
	}
	printLine(out, tty, countdownLine(a.cfg.Labels, region, subRegion, s.Tick()))

	<-ctx.Done()
	if tty {
		fmt.Fprintln(out)
	}
	return nil
}

// watchSelection fills in names the flags left out. A region given alone
// gets its remembered sub-region, else its first one.
func watchSelection(ctx context.Context, l prefs.Lister, ps prefs.Store, region, subRegion string) (string, string) {
	switch {
	case region == "":
		savedRegion, savedSub := prefs.Restore(ctx, l, ps, watchClientID)
		if subRegion == "" {
			subRegion = savedSub
		}
		return savedRegion, subRegion
	case subRegion == "":
		return region, prefs.RestoreSubRegion(ctx, l, ps, watchClientID, region)
	}
	return region, subRegion
}

// printLine rewrites the current line on a terminal and appends otherwise.
func printLine(w io.Writer, tty bool, line string) {
	if tty {
		fmt.Fprint(w, "\r\x1b[K"+line)
		return
	}
	fmt.Fprintln(w, line)
}

func countdownLine(labels config.Labels, region, subRegion string, r countdown.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s", region, subRegion)
	if r.Today != nil {
		fmt.Fprintf(&b, " %s day %d", r.Today.Date, r.Today.SequenceIndex)
	}
	fmt.Fprintf(&b, " | %s: %s | %s: %s", labels.Start, boundaryText(r.Start), labels.End, boundaryText(r.End))
	return b.String()
}

func loadErrorLine(labels config.Labels) string {
	return fmt.Sprintf("%s: %s | %s: %s", labels.Start, countdown.SentinelLoadError, labels.End, countdown.SentinelLoadError)
}

func boundaryText(b countdown.Boundary) string {
	if b.Tomorrow {
		return b.Display + " (tomorrow)"
	}
	return b.Display
}
