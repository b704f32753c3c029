package media

// SourceType identifies which platform an item came from.
type SourceType string

const (
	SourceInstagram SourceType = "instagram"
	SourceTwitter   SourceType = "twitter"
)

// Valid reports whether s is a known platform.
func (s SourceType) Valid() bool {
	switch s {
	case SourceInstagram, SourceTwitter:
		return true
	}
	return false
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceInstagram, SourceTwitter}
}

// Item is a single ingested social post together with its tags.
//
// ID is assigned by the store on insert and is zero until then. Lat and
// Long are nil when the origin supplied no coordinates.
type Item struct {
	ID           int64      `json:"id" db:"id"`
	Source       SourceType `json:"source" db:"source"`
	OriginalID   string     `json:"original_id" db:"original_id"`
	Text         string     `json:"text" db:"text"`
	Images       []string   `json:"images" db:"-"`
	Videos       []string   `json:"videos" db:"-"`
	Lat          *float64   `json:"lat" db:"lat"`
	Long         *float64   `json:"long" db:"long"`
	Username     string     `json:"username" db:"username"`
	CreatedAt    int64      `json:"created_at" db:"created_at"`
	URL          string     `json:"url" db:"url"`
	Active       bool       `json:"active" db:"active"`
	LikeCount    int        `json:"like_count" db:"like_count"`
	CommentCount int        `json:"comment_count" db:"comment_count"`
	Tags         []string   `json:"tags" db:"-"`
	ImagesJSON   string     `json:"-" db:"images"`
	VideosJSON   string     `json:"-" db:"videos"`
}

// New returns an active item from the given platform.
func New(source SourceType) Item {
	return Item{
		Source: source,
		Active: true,
		Images: []string{},
		Videos: []string{},
		Tags:   []string{},
	}
}

// Float returns a pointer to v, for populating Lat and Long.
func Float(v float64) *float64 {
	return &v
}
