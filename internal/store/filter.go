package store

import (
	"strings"

	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/jmoiron/sqlx"
)

const mediaColumns = `m.id, m.source, m.original_id, m.text, m.images, m.videos, m.lat, m.long,
	m.username, m.created_at, m.url, m.active, m.like_count, m.comment_count`

// clause is one typed predicate. Values are always returned as bind
// arguments; slice arguments are expanded into IN lists by sqlx.In.
type clause interface {
	render() (string, []any)
}

// compare is "column op value".
type compare struct {
	column string
	op     string
	value  any
}

func (c compare) render() (string, []any) {
	return c.column + " " + c.op + " ?", []any{c.value}
}

// memberOf matches rows whose column holds one of values.
type memberOf struct {
	column string
	values []string
}

func (c memberOf) render() (string, []any) {
	return c.column + " IN (?)", []any{c.values}
}

// taggedWith matches media carrying at least one of names. The tag
// relation is reduced to a grouped id set first so the one-to-many join
// can never duplicate a media row.
type taggedWith struct {
	names []string
}

func (c taggedWith) render() (string, []any) {
	return "m.id IN (SELECT t.media_id FROM tag t WHERE t.name IN (?) GROUP BY t.media_id)", []any{c.names}
}

// predicate is a conjunction of clauses.
type predicate struct {
	clauses []clause
}

func (p *predicate) and(c clause) *predicate {
	p.clauses = append(p.clauses, c)
	return p
}

func (p *predicate) render() (string, []any) {
	parts := make([]string, 0, len(p.clauses))
	var args []any
	for _, c := range p.clauses {
		s, a := c.render()
		parts = append(parts, s)
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args
}

// filterPredicate translates a query into its conjunction of clauses.
// Inactive media are always excluded.
func filterPredicate(q media.Query) *predicate {
	p := &predicate{}
	p.and(compare{column: "m.active", op: "=", value: true})

	if q.Since != nil {
		p.and(compare{column: "m.created_at", op: ">", value: *q.Since})
	}
	if q.Until != nil {
		p.and(compare{column: "m.created_at", op: "<", value: *q.Until})
	}
	if tags := q.TagSet(); len(tags) > 0 {
		p.and(taggedWith{names: tags})
	}
	if users := q.UsernameSet(); len(users) > 0 {
		p.and(memberOf{column: "m.username", values: users})
	}
	return p
}

// buildQuery renders q into a single parameterized statement using "?"
// placeholders. Callers rebind it for their driver.
func buildQuery(q media.Query) (string, []any, error) {
	where, args := filterPredicate(q).render()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(mediaColumns)
	sb.WriteString(" FROM media m WHERE ")
	sb.WriteString(where)
	sb.WriteString(" ORDER BY m.created_at DESC, m.id DESC")

	if limit := q.Limit(); limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	return sqlx.In(sb.String(), args...)
}
