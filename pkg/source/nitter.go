package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/mmcdole/gofeed"
)

const DefaultNitterURL = "https://nitter.net"

var imgSrcRe = regexp.MustCompile(`<img[^>]+src="([^"]+)"`)

// Nitter searches tweets through a Nitter instance's RSS feeds, which
// needs no API credentials.
type Nitter struct {
	client    *http.Client
	parser    *gofeed.Parser
	nitterURL string
}

// NewNitter creates a Nitter searcher against the given instance.
func NewNitter(nitterURL string) *Nitter {
	if nitterURL == "" {
		nitterURL = DefaultNitterURL
	}
	return &Nitter{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		nitterURL: strings.TrimRight(nitterURL, "/"),
	}
}

func (n *Nitter) Name() string { return "nitter" }

func (n *Nitter) FindByTag(ctx context.Context, tag string) ([]media.Item, error) {
	params := url.Values{}
	params.Set("f", "tweets")
	params.Set("q", "#"+strings.TrimPrefix(tag, "#"))
	return n.fetch(ctx, n.nitterURL+"/search/rss?"+params.Encode())
}

func (n *Nitter) FindByUsername(ctx context.Context, username string) ([]media.Item, error) {
	account := url.PathEscape(strings.TrimPrefix(username, "@"))
	return n.fetch(ctx, fmt.Sprintf("%s/%s/rss", n.nitterURL, account))
}

func (n *Nitter) fetch(ctx context.Context, feedURL string) ([]media.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create nitter request %s: %w", feedURL, err)
	}
	req.Header.Set("User-Agent", "socialstore/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch nitter %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nitter %s status %d", feedURL, resp.StatusCode)
	}

	feed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse nitter %s: %w", feedURL, err)
	}

	items := make([]media.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := n.entryToItem(entry)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// entryToItem maps a feed entry whose link looks like
// <instance>/<user>/status/<id>#m. Entries with other links are skipped.
func (n *Nitter) entryToItem(entry *gofeed.Item) (media.Item, bool) {
	link, err := url.Parse(entry.Link)
	if err != nil {
		return media.Item{}, false
	}
	parts := strings.Split(strings.Trim(link.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "status" {
		return media.Item{}, false
	}
	account, statusID := parts[0], parts[2]

	created := time.Now().UTC()
	if entry.PublishedParsed != nil {
		created = entry.PublishedParsed.UTC()
	}

	item := media.New(media.SourceTwitter)
	item.OriginalID = statusID
	item.Text = entry.Title
	item.Username = account
	item.CreatedAt = created.Unix()
	item.URL = fmt.Sprintf("https://x.com/%s/status/%s", account, statusID)
	item.Tags = hashtags(entry.Title)

	for _, m := range imgSrcRe.FindAllStringSubmatch(entry.Description, -1) {
		item.Images = append(item.Images, m[1])
	}
	return item, true
}
