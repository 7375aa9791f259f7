package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"nodeseek_bot/internal/model"
	"nodeseek_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer. Also keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertPost stores a post in the unpushed state. A post whose external
// id is already known is left untouched and reported as not inserted.
func (s *SQLite) InsertPost(ctx context.Context, post *model.Post) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO posts (post_id, title, memo, category, creator, push_status, pub_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.PostID, post.Title, post.Memo, post.Category, post.Creator,
		int(model.StatusUnpushed), post.PubDate.UTC().Format(timeLayout), now,
	)
	if err != nil {
		return false, fmt.Errorf("insert post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	post.ID = id
	post.PushStatus = model.StatusUnpushed
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	return true, nil
}

// GetPost returns a single post by its external id.
func (s *SQLite) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at
		 FROM posts WHERE post_id = ?`, postID,
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListUnpushed returns all unpushed posts, oldest publish time first.
func (s *SQLite) ListUnpushed(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at
		 FROM posts WHERE push_status = ? ORDER BY pub_date ASC, id ASC`,
		int(model.StatusUnpushed),
	)
	if err != nil {
		return nil, fmt.Errorf("query unpushed posts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanPosts(rows)
}

// ListRecentPosts returns up to limit posts, newest publish time first.
func (s *SQLite) ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, title, memo, category, creator, push_status, sub_id, pub_date, push_date, created_at
		 FROM posts ORDER BY pub_date DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanPosts(rows)
}

// UpdatePostStatus transitions a post out of the unpushed state.
// The WHERE guard makes the transition one-way: a post that has already
// been pushed or skipped is never touched again.
func (s *SQLite) UpdatePostStatus(ctx context.Context, postID int64, status model.PushStatus, subID *int64, pushDate *time.Time) error {
	var pd *string
	if pushDate != nil {
		v := pushDate.UTC().Format(timeLayout)
		pd = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET push_status = ?, sub_id = ?, push_date = ?
		 WHERE post_id = ? AND push_status = ?`,
		int(status), subID, pd, postID, int(model.StatusUnpushed),
	)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetPost(ctx, postID); err != nil {
			return err
		}
		return ErrFinalStatus
	}
	return nil
}

// CountPostsByStatus returns the number of posts per push status.
func (s *SQLite) CountPostsByStatus(ctx context.Context) (map[model.PushStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT push_status, COUNT(*) FROM posts GROUP BY push_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.PushStatus]int)
	for rows.Next() {
		var status, n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.PushStatus(status)] = n
	}
	return counts, rows.Err()
}

// CreateSubscription validates and stores a filter rule, populating its
// ID and timestamps.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.IsEmpty() {
		return ErrEmptySubscription
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (keyword1, keyword2, keyword3, creator, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.Keyword1, sub.Keyword2, sub.Keyword3, sub.Creator, sub.Category, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	sub.UpdatedAt = sub.CreatedAt
	return nil
}

// GetSubscription returns a single subscription by its ID.
func (s *SQLite) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword1, keyword2, keyword3, creator, category, created_at, updated_at
		 FROM subscriptions WHERE id = ?`, id,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubscriptions returns all subscriptions ordered by id, i.e.
// creation order. Matching relies on this order being stable.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword1, keyword2, keyword3, creator, category, created_at, updated_at
		 FROM subscriptions ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// UpdateSubscription persists changes to an existing subscription.
func (s *SQLite) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.IsEmpty() {
		return ErrEmptySubscription
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET keyword1 = ?, keyword2 = ?, keyword3 = ?, creator = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		sub.Keyword1, sub.Keyword2, sub.Keyword3, sub.Creator, sub.Category, now, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	sub.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// DeleteSubscription removes a subscription by its ID and reports
// whether a row was deleted.
func (s *SQLite) DeleteSubscription(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountSubscriptions returns the total number of subscriptions.
func (s *SQLite) CountSubscriptions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

// GetSettings returns the single runtime settings row.
func (s *SQLite) GetSettings(ctx context.Context) (*model.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, stop_push, only_title, updated_at FROM settings WHERE id = 1`,
	)
	var set model.Settings
	var stopPush, onlyTitle int
	var updated string
	if err := row.Scan(&set.ChatID, &stopPush, &onlyTitle, &updated); err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	set.StopPush = stopPush == 1
	set.OnlyTitle = onlyTitle == 1
	set.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &set, nil
}

// UpdateSettings persists the runtime settings row.
func (s *SQLite) UpdateSettings(ctx context.Context, set *model.Settings) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET chat_id = ?, stop_push = ?, only_title = ?, updated_at = ? WHERE id = 1`,
		set.ChatID, boolToInt(set.StopPush), boolToInt(set.OnlyTitle), now,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	set.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var status int
	var subID sql.NullInt64
	var pubDate string
	var pushDate, created sql.NullString
	err := row.Scan(&p.ID, &p.PostID, &p.Title, &p.Memo, &p.Category, &p.Creator,
		&status, &subID, &pubDate, &pushDate, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.PushStatus = model.PushStatus(status)
	if subID.Valid {
		v := subID.Int64
		p.SubID = &v
	}
	p.PubDate, _ = time.Parse(timeLayout, pubDate)
	if pushDate.Valid {
		t, _ := time.Parse(timeLayout, pushDate.String)
		p.PushDate = &t
	}
	if created.Valid {
		p.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var sub model.Subscription
	var created, updated string
	err := row.Scan(&sub.ID, &sub.Keyword1, &sub.Keyword2, &sub.Keyword3,
		&sub.Creator, &sub.Category, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(timeLayout, created)
	sub.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &sub, nil
}
