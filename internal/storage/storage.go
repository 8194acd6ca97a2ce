package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// Case is one appended audit entry for a performed moderation action.
// Rows are never updated, only inserted and eventually pruned by retention.
type Case struct {
	ID              int64
	GuildID         string
	ActionKind      string
	TargetUserID    string
	ModeratorUserID string
	Reason          string
	DurationSeconds int64
	CreatedAt       time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) AddCase(ctx context.Context, entry Case) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_cases (guild_id, action_kind, target_user_id, moderator_user_id, reason, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.GuildID, entry.ActionKind, entry.TargetUserID, entry.ModeratorUserID, entry.Reason, entry.DurationSeconds, entry.CreatedAt.Unix())
	return err
}

func (s *Store) ListCases(ctx context.Context, guildID string, limit int) ([]Case, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, action_kind, target_user_id, moderator_user_id, reason, duration_seconds, created_at
		FROM moderation_cases
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var entry Case
		var created int64
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.ActionKind, &entry.TargetUserID, &entry.ModeratorUserID, &entry.Reason, &entry.DurationSeconds, &created); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(created, 0)
		cases = append(cases, entry)
	}
	return cases, rows.Err()
}

func (s *Store) CountCases(ctx context.Context, guildID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moderation_cases WHERE guild_id = ?`, guildID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CountCasesSince(ctx context.Context, guildID string, since time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_cases WHERE guild_id = ? AND created_at >= ?
	`, guildID, since.Unix())
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CleanupCases(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM moderation_cases WHERE created_at < ?`, cutoff.Unix())
	return err
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
