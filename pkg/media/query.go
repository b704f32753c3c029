package media

// Query describes an optional combination of filters over stored items.
//
// Since and Until are exclusive bounds on CreatedAt. An item matches Tags
// when it carries at least one of them, and Usernames when its author is
// one of them. Set dimensions combine with AND. A Count of zero or less
// leaves the result size unbounded.
type Query struct {
	Since     *int64
	Until     *int64
	Tags      []string
	Usernames []string
	Count     int
}

// WithSince returns a copy of q restricted to items created after ts.
func (q Query) WithSince(ts int64) Query {
	q.Since = &ts
	return q
}

// WithUntil returns a copy of q restricted to items created before ts.
func (q Query) WithUntil(ts int64) Query {
	q.Until = &ts
	return q
}

// WithTags returns a copy of q matching any of tags.
func (q Query) WithTags(tags ...string) Query {
	q.Tags = append([]string(nil), tags...)
	return q
}

// WithUsernames returns a copy of q matching any of usernames.
func (q Query) WithUsernames(usernames ...string) Query {
	q.Usernames = append([]string(nil), usernames...)
	return q
}

// WithCount returns a copy of q capped at n results.
func (q Query) WithCount(n int) Query {
	q.Count = n
	return q
}

// Limit returns the effective row limit, 0 meaning none.
func (q Query) Limit() int {
	if q.Count < 0 {
		return 0
	}
	return q.Count
}

// TagSet returns the distinct non-empty tags in first-seen order.
func (q Query) TagSet() []string {
	return distinct(q.Tags)
}

// UsernameSet returns the distinct non-empty usernames in first-seen order.
func (q Query) UsernameSet() []string {
	return distinct(q.Usernames)
}

func distinct(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
