package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fastcal/internal/capture"
	"fastcal/internal/export"
	"fastcal/internal/schedule"
)

func runICS(ctx context.Context, args []string) error {
	var common commonFlags
	var region, subRegion, outPath string
	fs := newFlagSet("ics", &common)
	fs.StringVarP(&region, "region", "r", "", "region name")
	fs.StringVarP(&subRegion, "sub-region", "s", "", "sub-region name")
	fs.StringVarP(&outPath, "out", "o", "-", `output file ("-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if region == "" || subRegion == "" {
		return errors.New("--region and --sub-region are required")
	}

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}
	repo, err := a.repo()
	if err != nil {
		return err
	}
	seq := repo.Resolve(region, subRegion)
	if len(seq) == 0 {
		return fmt.Errorf("no schedule for %q / %q", region, subRegion)
	}

	name := a.cfg.Labels.Period
	if repo.Year() > 0 {
		name += " " + strconv.Itoa(repo.Year())
	}
	body := export.Serialize(seq, export.CalendarOptions{
		Region:     region,
		SubRegion:  subRegion,
		StartLabel: a.cfg.Labels.Start,
		EndLabel:   a.cfg.Labels.End,
		Name:       name + " - " + subRegion,
		Location:   a.source.Location(),
	})

	var w io.Writer = os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, body)
	return err
}

func runCapture(ctx context.Context, args []string) error {
	var common commonFlags
	var target, outPath string
	var width, height int
	var timeout time.Duration
	fs := newFlagSet("capture", &common)
	fs.StringVar(&target, "url", "", "page to capture (default: http://<listen>/calendar)")
	fs.StringVarP(&outPath, "out", "o", "", "output .png or .pdf (default: pdf.path from config, else ./calendar.png)")
	fs.IntVar(&width, "width", capture.DefaultWidth, "viewport width in pixels")
	fs.IntVar(&height, "height", capture.DefaultHeight, "viewport height in pixels")
	fs.DurationVar(&timeout, "timeout", time.Duration(capture.DefaultTimeoutSec)*time.Second, "overall capture timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}
	if target == "" {
		target = "http://" + a.cfg.Listen + "/calendar"
	}
	if outPath == "" {
		outPath = a.cfg.PDF.Path
	}
	if outPath == "" {
		outPath = "./calendar.png"
	}

	return capture.Calendar(ctx, capture.Options{
		URL:        target,
		OutputPath: outPath,
		Width:      width,
		Height:     height,
		Timeout:    timeout,
	})
}

func runRegions(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("regions", &common)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, common)
	if err != nil {
		return err
	}
	repo, err := a.repo()
	if err != nil {
		return err
	}
	printRegions(os.Stdout, repo)
	return nil
}

func printRegions(w io.Writer, repo *schedule.Repository) {
	if t := repo.Title(); t != "" {
		fmt.Fprintln(w, t)
	}
	for _, region := range repo.ListRegions() {
		fmt.Fprintln(w, region)
		for _, sub := range repo.ListSubRegions(region) {
			cov := schedule.CoverageOf(repo.Resolve(region, sub))
			line := fmt.Sprintf("  %s: %d days", sub, cov.Days)
			if cov.First != "" {
				line += fmt.Sprintf(" %s..%s", cov.First, cov.Last)
			}
			if len(cov.Missing) > 0 {
				line += " missing " + strings.Join(cov.Missing, ",")
			}
			if len(cov.InvalidDates) > 0 {
				line += " invalid " + strings.Join(cov.InvalidDates, ",")
			}
			fmt.Fprintln(w, line)
		}
	}
}
