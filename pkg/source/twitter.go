package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elonfeng/socialstore/pkg/media"
	"golang.org/x/oauth2"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	TwitterAPIURL   = "https://api.twitter.com/1.1"
	TwitterTokenURL = "https://api.twitter.com/oauth2/token"
)

// Twitter searches recent tweets through the v1.1 search API using an
// application-only bearer token.
type Twitter struct {
	client *http.Client
	apiURL string
	log    *zap.SugaredLogger
}

// NewTwitter creates a Twitter searcher. The bearer token is requested
// lazily on the first search and reused afterwards. log may be nil.
func NewTwitter(key, secret, apiURL, tokenURL string, log *zap.SugaredLogger) *Twitter {
	if apiURL == "" {
		apiURL = TwitterAPIURL
	}
	if tokenURL == "" {
		tokenURL = TwitterTokenURL
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cc := &clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: 30 * time.Second}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	client := cc.Client(ctx)
	client.Timeout = 30 * time.Second

	return &Twitter{
		client: client,
		apiURL: strings.TrimRight(apiURL, "/"),
		log:    log.Named("twitter"),
	}
}

func (t *Twitter) Name() string { return "twitter" }

func (t *Twitter) FindByTag(ctx context.Context, tag string) ([]media.Item, error) {
	return t.search(ctx, "#"+strings.TrimPrefix(tag, "#"))
}

func (t *Twitter) FindByUsername(ctx context.Context, username string) ([]media.Item, error) {
	return t.search(ctx, "from:"+strings.TrimPrefix(username, "@"))
}

type searchResponse struct {
	Statuses []tweet `json:"statuses"`
}

type tweet struct {
	IDStr         string `json:"id_str"`
	Text          string `json:"text"`
	FullText      string `json:"full_text"`
	CreatedAt     string `json:"created_at"`
	FavoriteCount int    `json:"favorite_count"`
	ReplyCount    int    `json:"reply_count"`
	User          struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	// GeoJSON point, longitude first.
	Coordinates *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"coordinates"`
	Entities struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
		Media []tweetMedia `json:"media"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []tweetMedia `json:"media"`
	} `json:"extended_entities"`
}

type tweetMedia struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	VideoInfo     struct {
		Variants []struct {
			Bitrate     int    `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

func (t *Twitter) search(ctx context.Context, q string) ([]media.Item, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("result_type", "recent")
	params.Set("tweet_mode", "extended")
	params.Set("count", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"/search/tweets.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create twitter request %q: %w", q, err)
	}
	req.Header.Set("User-Agent", "socialstore/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search twitter %q: %w", q, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter search %q status %d", q, resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode twitter search %q: %w", q, err)
	}

	items := make([]media.Item, 0, len(result.Statuses))
	for i := range result.Statuses {
		item, err := tweetToItem(&result.Statuses[i])
		if err != nil {
			t.log.Warnw("skipping tweet", "query", q, "id", result.Statuses[i].IDStr, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func tweetToItem(tw *tweet) (media.Item, error) {
	created, err := time.Parse(time.RubyDate, tw.CreatedAt)
	if err != nil {
		return media.Item{}, fmt.Errorf("parse tweet %s created_at: %w", tw.IDStr, err)
	}

	item := media.New(media.SourceTwitter)
	item.OriginalID = tw.IDStr
	item.Text = tw.FullText
	if item.Text == "" {
		item.Text = tw.Text
	}
	item.Username = tw.User.ScreenName
	item.CreatedAt = created.Unix()
	item.URL = fmt.Sprintf("https://twitter.com/%s/status/%s", tw.User.ScreenName, tw.IDStr)
	item.LikeCount = tw.FavoriteCount
	item.CommentCount = tw.ReplyCount

	if tw.Coordinates != nil && len(tw.Coordinates.Coordinates) == 2 {
		item.Long = media.Float(tw.Coordinates.Coordinates[0])
		item.Lat = media.Float(tw.Coordinates.Coordinates[1])
	}

	for _, h := range tw.Entities.Hashtags {
		item.Tags = append(item.Tags, h.Text)
	}

	attached := tw.ExtendedEntities.Media
	if len(attached) == 0 {
		attached = tw.Entities.Media
	}
	for _, m := range attached {
		switch m.Type {
		case "photo":
			item.Images = append(item.Images, m.MediaURLHTTPS)
		case "video", "animated_gif":
			if u := bestVariant(m); u != "" {
				item.Videos = append(item.Videos, u)
			}
		}
	}

	return item, nil
}

// bestVariant picks the highest bitrate mp4 rendition.
func bestVariant(m tweetMedia) string {
	best, bitrate := "", -1
	for _, v := range m.VideoInfo.Variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if v.Bitrate > bitrate {
			best, bitrate = v.URL, v.Bitrate
		}
	}
	return best
}
