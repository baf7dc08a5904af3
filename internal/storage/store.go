package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/deusflow/trendpulse/internal/logger"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// duplicatePrefixRunes is how much of a description is compared when
	// looking for near-identical stories.
	duplicatePrefixRunes = 50
	table                = "trend_articles"
)

// Record is a published trend summary.
type Record struct {
	ID               string    `json:"id"`
	Topic            string    `json:"topic"`
	TitlePL          string    `json:"title_pl"`
	DescriptionPL    string    `json:"description_pl"`
	TitleEN          string    `json:"title_en"`
	DescriptionEN    string    `json:"description_en"`
	CredibilityScore int       `json:"credibility_score"`
	PublishedAt      time.Time `json:"published_at"`
	ImageURL         string    `json:"image_url"`
	SourceURLs       []string  `json:"source_urls"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists records in PostgreSQL or SQLite.
type Store struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
	now    func() time.Time
	log    *slog.Logger
}

var columns = []string{
	"id", "topic", "title_pl", "description_pl", "title_en", "description_en",
	"credibility_score", "published_at", "image_url", "source_urls", "created_at",
}

// Open connects, pings and creates the schema if needed. For sqlite, dsn is a
// file path or ":memory:".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
		if dsn == ":memory:" {
			dsn = "file::memory:?cache=shared"
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: coherent.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:    time.Now,
		log:    logger.With("storage"),
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Info("database connected", "driver", driver)
	return s, nil
}

// initSchema creates the necessary tables if they don't exist
func (s *Store) initSchema(ctx context.Context) error {
	timestamp := "TIMESTAMPTZ"
	if s.driver == DriverSQLite {
		timestamp = "DATETIME"
	}
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			title_pl TEXT NOT NULL,
			description_pl TEXT NOT NULL,
			title_en TEXT NOT NULL,
			description_en TEXT NOT NULL,
			credibility_score INTEGER NOT NULL DEFAULT 0,
			published_at %[2]s NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			source_urls TEXT NOT NULL DEFAULT '[]',
			created_at %[2]s NOT NULL
		)`, table, timestamp),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_title_pl ON %[1]s(title_pl)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_title_en ON %[1]s(title_en)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_description_en ON %[1]s(description_en)`, table),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// WriteArticle inserts rec and returns its id. Missing ID and CreatedAt are
// filled in.
func (s *Store) WriteArticle(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.SourceURLs == nil {
		rec.SourceURLs = []string{}
	}
	urls, err := json.Marshal(rec.SourceURLs)
	if err != nil {
		return "", fmt.Errorf("encode source urls: %w", err)
	}

	_, err = s.sb.Insert(table).
		Columns(columns...).
		Values(rec.ID, strings.ToLower(strings.TrimSpace(rec.Topic)), rec.TitlePL, rec.DescriptionPL, rec.TitleEN, rec.DescriptionEN,
			rec.CredibilityScore, rec.PublishedAt.UTC(), rec.ImageURL, string(urls), rec.CreatedAt.UTC()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to write article: %w", err)
	}
	return rec.ID, nil
}

// CheckDuplicate reports whether a stored record has the same Polish or
// English title, or a description sharing the first 50 characters.
func (s *Store) CheckDuplicate(ctx context.Context, rec Record) (bool, error) {
	var cond sq.Or
	if rec.TitlePL != "" {
		cond = append(cond, sq.Eq{"title_pl": rec.TitlePL})
	}
	if rec.TitleEN != "" {
		cond = append(cond, sq.Eq{"title_en": rec.TitleEN})
	}
	descriptions := []struct{ col, text string }{
		{"description_pl", rec.DescriptionPL},
		{"description_en", rec.DescriptionEN},
	}
	for _, d := range descriptions {
		if p := descriptionPrefix(d.text); p != "" {
			cond = append(cond, sq.And{sq.GtOrEq{d.col: p}, sq.Lt{d.col: p + "\uFFFF"}})
		}
	}
	if len(cond) == 0 {
		return false, nil
	}

	var count int
	err := s.sb.Select("COUNT(*)").From(table).Where(cond).
		RunWith(s.db).QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return count > 0, nil
}

func descriptionPrefix(desc string) string {
	r := []rune(strings.TrimSpace(desc))
	if len(r) > duplicatePrefixRunes {
		r = r[:duplicatePrefixRunes]
	}
	return string(r)
}

// GetArticle loads one record by id.
func (s *Store) GetArticle(ctx context.Context, id string) (Record, error) {
	rows, err := s.sb.Select(columns...).From(table).Where(sq.Eq{"id": id}).
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to get article: %w", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

// GetRecentArticles returns records created within the last hours, newest first.
func (s *Store) GetRecentArticles(ctx context.Context, hours int) ([]Record, error) {
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour).UTC()
	rows, err := s.sb.Select(columns...).From(table).
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at DESC").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent articles: %w", err)
	}
	return scanRecords(rows)
}

// RecentTopics returns the distinct lower-cased topics of recent records,
// newest first. This is the novelty list fed to trend selection.
func (s *Store) RecentTopics(ctx context.Context, hours int) ([]string, error) {
	recs, err := s.GetRecentArticles(ctx, hours)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(recs))
	topics := make([]string, 0, len(recs))
	for _, r := range recs {
		t := strings.ToLower(strings.TrimSpace(r.Topic))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	return topics, nil
}

// Cleanup removes records older than olderThan and returns how many went.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UTC()
	result, err := s.sb.Delete(table).Where(sq.Lt{"created_at": cutoff}).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		s.log.Info("cleaned up old records", "count", rows)
	}
	return rows, nil
}

// Stats returns row counts for monitoring.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total int
	if err := s.sb.Select("COUNT(*)").From(table).RunWith(s.db).QueryRowContext(ctx).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	stats["total_items"] = total

	var lastDay int
	cutoff := s.now().Add(-24 * time.Hour).UTC()
	if err := s.sb.Select("COUNT(*)").From(table).Where(sq.GtOrEq{"created_at": cutoff}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&lastDay); err != nil {
		return nil, fmt.Errorf("count recent records: %w", err)
	}
	stats["last_24h"] = lastDay

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			urls string
		)
		if err := rows.Scan(&r.ID, &r.Topic, &r.TitlePL, &r.DescriptionPL, &r.TitleEN, &r.DescriptionEN,
			&r.CredibilityScore, &r.PublishedAt, &r.ImageURL, &urls, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(urls), &r.SourceURLs); err != nil {
			return nil, fmt.Errorf("decode source urls for %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
