package source

import (
	"context"
	"regexp"

	"github.com/elonfeng/socialstore/pkg/media"
)

// Searcher fetches recent posts from an external network. Returned items
// are fully populated except for ID, which the store assigns.
type Searcher interface {
	Name() string
	FindByTag(ctx context.Context, tag string) ([]media.Item, error)
	FindByUsername(ctx context.Context, username string) ([]media.Item, error)
}

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// hashtags returns the hashtags in text without the leading '#'.
func hashtags(text string) []string {
	tags := []string{}
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	return tags
}
