package scheduler

import (
	"context"
	"time"

	"github.com/elonfeng/socialstore/internal/store"
	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/elonfeng/socialstore/pkg/source"
	"go.uber.org/zap"
)

// Inserter is the part of the store the scheduler writes to.
type Inserter interface {
	Insert(ctx context.Context, items []media.Item) store.InsertReport
}

// Result summarizes one searcher/target pair of a collection pass.
type Result struct {
	Searcher string `json:"searcher"`
	Target   string `json:"target"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Scheduler runs periodic collection of the configured tags and usernames.
type Scheduler struct {
	store     Inserter
	searchers []source.Searcher
	tags      []string
	usernames []string
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new scheduler.
func New(
	s Inserter,
	searchers []source.Searcher,
	tags, usernames []string,
	interval time.Duration,
	log *zap.SugaredLogger,
) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		store:     s,
		searchers: searchers,
		tags:      tags,
		usernames: usernames,
		interval:  interval,
		log:       log.Named("scheduler"),
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("initial collection")
	s.CollectAll(ctx)

	s.log.Infow("running", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped")
			return ctx.Err()
		case <-ticker.C:
			s.CollectAll(ctx)
		}
	}
}

// CollectAll runs one pass over the configured targets.
func (s *Scheduler) CollectAll(ctx context.Context) []Result {
	return s.Collect(ctx, s.tags, s.usernames)
}

// Collect fetches every tag and username from every searcher and stores
// what comes back. A failing target is logged and skipped.
func (s *Scheduler) Collect(ctx context.Context, tags, usernames []string) []Result {
	var results []Result
	total := 0

	for _, src := range s.searchers {
		for _, tag := range tags {
			r := s.collect(ctx, src, "#"+tag, func() ([]media.Item, error) {
				return src.FindByTag(ctx, tag)
			})
			total += r.Inserted
			results = append(results, r)
		}
		for _, user := range usernames {
			r := s.collect(ctx, src, "@"+user, func() ([]media.Item, error) {
				return src.FindByUsername(ctx, user)
			})
			total += r.Inserted
			results = append(results, r)
		}
	}

	s.log.Infow("collection finished", "targets", len(results), "inserted", total)
	return results
}

func (s *Scheduler) collect(ctx context.Context, src source.Searcher, target string, fetch func() ([]media.Item, error)) Result {
	r := Result{Searcher: src.Name(), Target: target}

	items, err := fetch()
	if err != nil {
		s.log.Warnw("fetch failed", "searcher", r.Searcher, "target", target, "error", err)
		r.Error = err.Error()
		return r
	}

	report := s.store.Insert(ctx, items)
	r.Fetched = len(items)
	r.Inserted = report.Inserted
	r.Skipped = len(report.Failures)

	s.log.Debugw("collected", "searcher", r.Searcher, "target", target,
		"fetched", r.Fetched, "inserted", r.Inserted, "skipped", r.Skipped)
	return r
}
