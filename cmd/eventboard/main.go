package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"eventboard/internal/board"
	"eventboard/internal/capture"
	"eventboard/internal/catalog"
	"eventboard/internal/config"
	"eventboard/internal/ics"
	appLog "eventboard/internal/log"
	"eventboard/internal/metrics"
	"eventboard/internal/model"
	"eventboard/internal/refresh"
	"eventboard/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	category   string
	snapshot   string
}

func main() {
	appLog.Info("eventboard starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "error", err)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"catalog", conf.CatalogPath,
		"strict_catalog", conf.StrictCatalog,
		"event_year", conf.EventYear,
		"event_duration", conf.EventDuration,
		"refresh_interval", conf.RefreshInterval,
		"feed_count", len(conf.Feeds),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	policy := conf.Policy()
	opts := catalog.Options{
		Policy:      policy,
		Strict:      conf.StrictCatalog,
		AllCategory: conf.AllCategory,
	}

	cat, err := catalog.Load(conf.CatalogPath, opts)
	if err != nil {
		appLog.Error("failed to load catalog", err, "path", conf.CatalogPath)
		os.Exit(1)
	}
	metrics.SetRejected(len(cat.Rejected))

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

	sources := feedSources(conf)
	fetcher := ics.NewFetcher(conf.CacheDir)
	events := cat.Events
	if len(sources) > 0 {
		events = loadFeeds(ctx, fetcher, sources, cat, opts)
	}

	b := board.New(cat.Categories, events, board.Options{
		Policy:      policy,
		AllCategory: conf.AllCategory,
		RefreshSpec: conf.RefreshInterval,
	})

	if flags.once {
		if err := printBoard(os.Stdout, b, flags.category); err != nil {
			appLog.Error("failed to render board", err)
			os.Exit(1)
		}
		return
	}

	if err := b.Activate(); err != nil {
		appLog.Error("refresh ticker unavailable; serving a static board", err, "spec", conf.RefreshInterval)
	}
	defer b.Deactivate()

	if len(sources) > 0 {
		feeds := refresh.New("feeds", conf.FeedsRefresh, policy.Location, func() {
			b.SetEvents(loadFeeds(ctx, fetcher, sources, cat, opts))
		})
		if err := feeds.Start(); err != nil {
			appLog.Error("feed refresh schedule unavailable", err, "spec", conf.FeedsRefresh)
		}
		defer func() { <-feeds.Stop().Done() }()
	}

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		appLog.Error("failed to listen", err, "listen", conf.Listen)
		os.Exit(1)
	}

	srv := web.NewServer(conf, b)
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		serveErr <- httpSrv.Serve(ln)
	}()

	if flags.snapshot != "" {
		if err := snapshot(ctx, conf, ln.Addr(), flags); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
		} else {
			appLog.Info("snapshot written", "output", flags.snapshot)
		}
		cancel()
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server stopped", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	appLog.Info("eventboard exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventboard/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print the sorted board and exit")
	flag.StringVar(&cfg.category, "category", "", "Category filter for -once and -snapshot")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Serve, write a PNG of /board to this path, and exit")

	flag.Parse()

	return cfg
}

func feedSources(conf *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		if f.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: f.ID, URL: f.URL, Category: f.Category})
	}
	return sources
}

// loadFeeds returns the catalog merged with the feed events. Events from a
// failed feed are simply missing; the error is logged and counted.
func loadFeeds(ctx context.Context, fetcher catalog.FeedFetcher, sources []ics.Source, cat *catalog.Catalog, opts catalog.Options) []model.Event {
	extra, err := catalog.LoadFeeds(ctx, fetcher, sources, opts)
	metrics.ObserveFeedRefresh(err)
	if err != nil {
		appLog.Error("one or more feeds failed", err, "feeds", len(sources))
	}
	return cat.Merge(extra)
}

var statusColors = map[model.Status]*color.Color{
	model.StatusOngoing:  color.New(color.FgGreen, color.Bold),
	model.StatusUpcoming: color.New(color.FgCyan),
	model.StatusPast:     color.New(color.FgHiBlack),
}

// printBoard writes the board in display order, one event per line.
func printBoard(w io.Writer, b *board.Board, category string) error {
	v, err := b.Render(board.Request{Category: category})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  (%s)\n", v.ActiveCategory, v.Now.Format(time.RFC1123))
	for _, c := range v.Cards {
		label := fmt.Sprintf("%-8s", c.Status)
		if col, ok := statusColors[c.Status]; ok {
			label = col.Sprint(label)
		}
		fmt.Fprintf(w, "%s  %-14s %-11s  %s\n", label, c.Event.Date, c.Event.Time, c.Event.Title)
	}
	if len(v.Cards) == 0 {
		fmt.Fprintln(w, "no events")
	}
	return nil
}

// snapshot captures /board from the running server.
func snapshot(ctx context.Context, conf *config.Config, addr net.Addr, flags flagConfig) error {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return err
	}
	target := "http://" + net.JoinHostPort("127.0.0.1", port) + "/board"
	if flags.category != "" {
		target += "?category=" + url.QueryEscape(flags.category)
	}

	opts := capture.CaptureOptions{URL: target, OutputPath: flags.snapshot}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return capture.CaptureBoardPNG(ctx, opts)
}
