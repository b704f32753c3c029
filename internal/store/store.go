package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/jmoiron/sqlx"
)

// InsertStatus is the outcome of persisting a single item.
type InsertStatus int

const (
	InsertOK InsertStatus = iota
	InsertDuplicate
	InsertFault
)

func (s InsertStatus) String() string {
	switch s {
	case InsertOK:
		return "ok"
	case InsertDuplicate:
		return "duplicate"
	case InsertFault:
		return "fault"
	}
	return fmt.Sprintf("InsertStatus(%d)", int(s))
}

// InsertResult describes what happened to items[Index] during Insert.
type InsertResult struct {
	Index      int
	Source     media.SourceType
	OriginalID string
	Status     InsertStatus
	ID         int64
	Err        error
}

// InsertReport aggregates a batch insert.
type InsertReport struct {
	Inserted int
	Failures []InsertResult
}

// Store is the persistence interface.
type Store interface {
	Insert(ctx context.Context, items []media.Item) InsertReport
	Query(ctx context.Context, q media.Query) ([]media.Item, error)
	Tags(ctx context.Context, ids []int64) (map[int64][]string, error)
	SetActive(ctx context.Context, id int64, active bool) error
	CountBySource(ctx context.Context) (map[media.SourceType]int, error)

	ApplySchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	Close() error
}

// Options configures Open.
type Options struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string
	// DSN is a file path for SQLite or a connection string for Postgres.
	DSN string
	// Migrate applies the schema after connecting.
	Migrate bool
	// Sink receives per-item insert failures. Defaults to NopSink.
	Sink ErrorSink
}

// SQLStore implements Store on a relational backend.
type SQLStore struct {
	db *sqlx.DB
	// reader runs every SELECT; it is db unless a test wraps it.
	reader  sqlx.QueryerContext
	dialect Dialect
	sink    ErrorSink
}

var _ Store = (*SQLStore)(nil)

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := sqlx.Open(dialect.DriverName(), dialect.DSN(opts.DSN))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fault("connect "+dialect.Name(), err)
	}

	s := &SQLStore{db: db, reader: db, dialect: dialect, sink: opts.Sink}
	if s.sink == nil {
		s.sink = NopSink{}
	}

	if opts.Migrate {
		if err := s.ApplySchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

const insertMediaSQL = `
	INSERT INTO media (source, original_id, text, images, videos, lat, long, username,
		created_at, url, active, like_count, comment_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Insert persists every item independently. An item that fails is skipped
// and reported to the sink; the rest of the batch still goes through.
// Successfully stored items get their assigned id written back.
func (s *SQLStore) Insert(ctx context.Context, items []media.Item) InsertReport {
	var report InsertReport
	for i := range items {
		res := s.insertOne(ctx, &items[i])
		res.Index = i
		if res.Status == InsertOK {
			items[i].ID = res.ID
			report.Inserted++
			continue
		}
		s.sink.Record(fmt.Errorf("insert %s/%s: %w", res.Source, res.OriginalID, res.Err))
		report.Failures = append(report.Failures, res)
	}
	return report
}

func (s *SQLStore) insertOne(ctx context.Context, item *media.Item) InsertResult {
	res := InsertResult{Source: item.Source, OriginalID: item.OriginalID}

	id, err := s.insertTx(ctx, item)
	switch {
	case err == nil:
		res.Status = InsertOK
		res.ID = id
	case s.dialect.IsConstraint(err):
		res.Status = InsertDuplicate
		res.Err = fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		res.Status = InsertFault
		res.Err = fault("insert media", err)
	}
	return res
}

// insertTx writes the media row and its tags in one transaction, so a
// failed tag never leaves an orphaned item behind.
func (s *SQLStore) insertTx(ctx context.Context, item *media.Item) (int64, error) {
	imagesJSON, err := json.Marshal(item.Images)
	if err != nil {
		return 0, fmt.Errorf("encode images: %w", err)
	}
	videosJSON, err := json.Marshal(item.Videos)
	if err != nil {
		return 0, fmt.Errorf("encode videos: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	id, err := s.dialect.InsertMedia(ctx, tx, insertMediaSQL,
		item.Source, item.OriginalID, item.Text, string(imagesJSON), string(videosJSON),
		item.Lat, item.Long, item.Username, item.CreatedAt, item.URL, item.Active,
		item.LikeCount, item.CommentCount)
	if err != nil {
		return 0, err
	}

	tagSQL := tx.Rebind("INSERT INTO tag (media_id, name) VALUES (?, ?)")
	for _, tag := range item.Tags {
		if _, err := tx.ExecContext(ctx, tagSQL, id, tag); err != nil {
			return 0, fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Query returns the active items matching q, newest first, each with its
// full tag list. It either returns the complete result or fails.
func (s *SQLStore) Query(ctx context.Context, q media.Query) ([]media.Item, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, fault("build media query", err)
	}

	items := []media.Item{}
	if err := sqlx.SelectContext(ctx, s.reader, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fault("query media", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
		if err := json.Unmarshal([]byte(items[i].ImagesJSON), &items[i].Images); err != nil {
			return nil, fault(fmt.Sprintf("decode media %d images", items[i].ID), err)
		}
		if err := json.Unmarshal([]byte(items[i].VideosJSON), &items[i].Videos); err != nil {
			return nil, fault(fmt.Sprintf("decode media %d videos", items[i].ID), err)
		}
	}

	tags, err := s.Tags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Tags = tags[items[i].ID]
	}
	return items, nil
}

// SetActive flips the soft-delete flag. Inactive items stay stored but are
// never returned by Query.
func (s *SQLStore) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE media SET active = ? WHERE id = ?"), active, id)
	if err != nil {
		return fault(fmt.Sprintf("set active %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault(fmt.Sprintf("set active %d", id), err)
	}
	if n == 0 {
		return fmt.Errorf("set active %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountBySource counts active items per platform.
func (s *SQLStore) CountBySource(ctx context.Context) (map[media.SourceType]int, error) {
	rows, err := s.reader.QueryxContext(ctx,
		s.db.Rebind("SELECT source, COUNT(*) AS cnt FROM media WHERE active = ? GROUP BY source"), true)
	if err != nil {
		return nil, fault("count media by source", err)
	}
	defer rows.Close()

	counts := make(map[media.SourceType]int)
	for rows.Next() {
		var src string
		var cnt int
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, fault("count media by source", err)
		}
		counts[media.SourceType(src)] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fault("count media by source", err)
	}
	return counts, nil
}
