package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tacyan/img-ex/internal/config"
	"github.com/tacyan/img-ex/internal/extract"
)

// One-shot extraction: fetch a page, list the image candidates it
// yields, optionally probing their dimensions first.
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	pageURL := flag.String("url", "", "Page URL to extract images from")
	render := flag.Bool("render", false, "Render the page with a headless browser first")
	probeDims := flag.Bool("probe", false, "Probe image dimensions before printing")
	asJSON := flag.Bool("json", false, "Print the filtered view as JSON")
	flag.Parse()

	if *pageURL == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	engine, err := extract.NewEngine(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, engine, *pageURL, *render, *probeDims, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *extract.Engine, pageURL string, render, probeDims, asJSON bool) error {
	session := extract.NewSession(pageURL)

	page, err := engine.FetchPage(ctx, pageURL, render)
	if err != nil {
		return err
	}
	stylesheets, err := engine.Extract(page, session)
	if err != nil {
		return err
	}
	session.CollectStylesheets(ctx, engine, stylesheets)

	if probeDims {
		for range engine.ProbeSession(ctx, session) {
		}
	}

	view := session.View()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Printf("strategy: %s, candidates: %d, shown: %d\n", session.Strategy(), session.Registry().Len(), len(view))
	for _, rec := range view {
		if rec.Loaded {
			fmt.Printf("%s\t%dx%d\t%s\n", rec.URL, rec.Width, rec.Height, rec.Format)
		} else {
			fmt.Printf("%s\t-\t%s\n", rec.URL, rec.Format)
		}
	}
	return nil
}
