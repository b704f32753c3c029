package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/socialstore/internal/config"
	"github.com/elonfeng/socialstore/internal/logging"
	"github.com/elonfeng/socialstore/internal/scheduler"
	"github.com/elonfeng/socialstore/internal/store"
	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/elonfeng/socialstore/pkg/server"
	"github.com/elonfeng/socialstore/pkg/source"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// app bundles what every command needs.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	db  *store.SQLStore
}

func setup(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Config{
		Development: cfg.Log.Development,
		Level:       cfg.Log.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := store.Open(ctx, store.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		Migrate: migrate,
		Sink:    store.NewZapSink(log),
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.log.Sync()
}

func buildSearchers(cfg *config.Config, log *zap.SugaredLogger) []source.Searcher {
	var searchers []source.Searcher

	if cfg.Twitter.Enabled && cfg.Twitter.Key != "" {
		searchers = append(searchers, source.NewTwitter(
			cfg.Twitter.Key,
			cfg.Twitter.Secret,
			cfg.Twitter.APIURL,
			cfg.Twitter.TokenURL,
			log,
		))
	}
	if cfg.Nitter.Enabled && cfg.Nitter.URL != "" {
		searchers = append(searchers, source.NewNitter(cfg.Nitter.URL))
	}

	return searchers
}

func buildScheduler(a *app) *scheduler.Scheduler {
	return scheduler.New(a.db, buildSearchers(a.cfg, a.log),
		a.cfg.Collect.Tags,
		a.cfg.Collect.Usernames,
		a.cfg.Collect.ParseInterval(),
		a.log,
	)
}

func runMigrate(ctx context.Context) error {
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "schema applied (%s)\n", a.cfg.Database.Driver)
	return nil
}

func runDrop(ctx context.Context) error {
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.DropSchema(ctx); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	fmt.Fprintln(os.Stderr, "tables dropped")
	return nil
}

func runCollect(ctx context.Context, tags, users []string) error {
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := buildScheduler(a)

	var results []scheduler.Result
	if len(tags) == 0 && len(users) == 0 {
		if len(a.cfg.Collect.Tags) == 0 && len(a.cfg.Collect.Usernames) == 0 {
			return fmt.Errorf("nothing to collect: pass --tag/--user or set collect.tags in config")
		}
		results = sched.CollectAll(ctx)
	} else {
		results = sched.Collect(ctx, tags, users)
	}

	if len(results) == 0 {
		return fmt.Errorf("no searchers enabled")
	}

	total := 0
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(os.Stderr, "%s %s: error: %s\n", r.Searcher, r.Target, r.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %s: fetched %d, inserted %d, skipped %d\n",
			r.Searcher, r.Target, r.Fetched, r.Inserted, r.Skipped)
		total += r.Inserted
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d new items\n", total)
	return nil
}

type queryOptions struct {
	since, until       int64
	sinceSet, untilSet bool
	tags, users        []string
	count              int
	json               bool
}

func (o queryOptions) query() media.Query {
	q := media.Query{}.WithTags(o.tags...).WithUsernames(o.users...).WithCount(o.count)
	if o.sinceSet {
		q = q.WithSince(o.since)
	}
	if o.untilSet {
		q = q.WithUntil(o.until)
	}
	return q
}

func runQuery(ctx context.Context, opts queryOptions) error {
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.db.Query(ctx, opts.query())
	if err != nil {
		return fmt.Errorf("query media: %w", err)
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("no media found (try collecting data first: socialstore collect)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tUSER\tCREATED\tTAGS\tURL")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Source, it.Username,
			time.Unix(it.CreatedAt, 0).UTC().Format(time.RFC3339),
			strings.Join(it.Tags, ","), it.URL)
	}
	return w.Flush()
}

func runServe(port int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := server.New(a.db, buildScheduler(a), port, a.log)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	sched := buildScheduler(a)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Errorw("scheduler stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		a.log.Info("shutting down")
	}()

	srv := server.New(a.db, sched, port, a.log)
	return srv.ListenAndServe(ctx)
}
