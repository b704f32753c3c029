package main

import (
	"testing"

	"github.com/elonfeng/socialstore/internal/config"
)

func TestQueryOptions(t *testing.T) {
	q := queryOptions{tags: []string{"car"}, count: 5}.query()
	if q.Since != nil || q.Until != nil {
		t.Errorf("unset bounds applied: %+v", q)
	}
	if q.Limit() != 5 || len(q.TagSet()) != 1 {
		t.Errorf("query = %+v", q)
	}

	// An explicit zero is still a bound.
	q = queryOptions{since: 0, sinceSet: true, until: 10, untilSet: true}.query()
	if q.Since == nil || *q.Since != 0 || q.Until == nil || *q.Until != 10 {
		t.Errorf("bounds = %v, %v", q.Since, q.Until)
	}
}

func TestBuildSearchers(t *testing.T) {
	cfg := config.Default()
	if got := buildSearchers(cfg, nil); len(got) != 1 || got[0].Name() != "nitter" {
		t.Fatalf("default searchers = %v", got)
	}

	cfg.Twitter.Enabled = true
	cfg.Twitter.Key, cfg.Twitter.Secret = "k", "s"
	cfg.Nitter.Enabled = false
	if got := buildSearchers(cfg, nil); len(got) != 1 || got[0].Name() != "twitter" {
		t.Fatalf("twitter searchers = %v", got)
	}
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"migrate", "drop", "collect", "query", "serve", "run"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
