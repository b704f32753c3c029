package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type tagRow struct {
	MediaID int64  `db:"media_id"`
	Name    string `db:"name"`
}

// Tags returns the tags of every id in ids, in the order they were stored.
// Ids without tags map to an empty slice. The lookup is a single round
// trip regardless of len(ids); an empty ids performs none.
func (s *SQLStore) Tags(ctx context.Context, ids []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := tags[id]; ok {
			continue
		}
		tags[id] = []string{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return tags, nil
	}

	query, args, err := sqlx.In("SELECT media_id, name FROM tag WHERE media_id IN (?) ORDER BY id", unique)
	if err != nil {
		return nil, fault("build tag lookup", err)
	}

	var rows []tagRow
	if err := sqlx.SelectContext(ctx, s.reader, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fault("get tags", err)
	}

	for _, r := range rows {
		tags[r.MediaID] = append(tags[r.MediaID], r.Name)
	}
	return tags, nil
}
