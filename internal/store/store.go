package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/timeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps saved projects and the export log in a sqlite database.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// ProjectSummary describes a stored project without its payload.
type ProjectSummary struct {
	Name     string    `json:"name"`
	Version  int       `json:"version"`
	Clips    int       `json:"clips"`
	Duration float64   `json:"duration"`
	SavedAt  time.Time `json:"saved_at"`
}

// ExportRecord is one finished export.
type ExportRecord struct {
	ID         int64         `json:"id"`
	Project    string        `json:"project"`
	Path       string        `json:"path"`
	Profile    string        `json:"profile"`
	Resolution string        `json:"resolution"`
	FPS        int           `json:"fps"`
	Frames     int           `json:"frames"`
	Duration   float64       `json:"duration"`
	Elapsed    time.Duration `json:"elapsed"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Open creates or opens the database at path and applies pending
// migrations.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.migrationApplied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		s.logger.Info().Str("name", name).Msg("applied migration")
	}
	return nil
}

func (s *Store) migrationApplied(name string) bool {
	var exists int
	if err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists); err != nil {
		return false
	}
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// Save upserts a project by name. It satisfies engine.Saver so the
// autosaver can write here.
func (s *Store) Save(ctx context.Context, pf engine.ProjectFile) error {
	if pf.Name == "" {
		pf.Name = engine.DefaultProjectName
	}
	if pf.SavedAt.IsZero() {
		pf.SavedAt = time.Now().UTC()
	}
	data, err := pf.Marshal()
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO projects (name, version, clips, duration, data, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			clips = excluded.clips,
			duration = excluded.duration,
			data = excluded.data,
			saved_at = excluded.saved_at
	`, pf.Name, pf.Version, len(pf.Clips), pf.Duration, string(data), pf.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save project %q: %w", pf.Name, err)
	}
	return nil
}

// Load returns the stored project with the given name.
func (s *Store) Load(ctx context.Context, name string) (engine.ProjectFile, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, `SELECT data FROM projects WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ProjectFile{}, &timeline.NotFoundError{Kind: "project", ID: name}
	}
	if err != nil {
		return engine.ProjectFile{}, fmt.Errorf("load project %q: %w", name, err)
	}
	return engine.ParseProject([]byte(data))
}

// List returns every stored project, most recently saved first.
func (s *Store) List(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT name, version, clips, duration, saved_at
		FROM projects ORDER BY saved_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		var savedAt string
		if err := rows.Scan(&p.Name, &p.Version, &p.Clips, &p.Duration, &savedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.SavedAt = parseTime(savedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a stored project.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &timeline.NotFoundError{Kind: "project", ID: name}
	}
	return nil
}

// RecordExport appends a finished export to the log.
func (s *Store) RecordExport(ctx context.Context, project string, art export.Artifact) (ExportRecord, error) {
	rec := ExportRecord{
		Project:    project,
		Path:       art.Path,
		Profile:    art.Profile,
		Resolution: art.Resolution.Name,
		FPS:        art.FPS,
		Frames:     art.Frames,
		Duration:   art.Duration,
		Elapsed:    art.Elapsed,
		CreatedAt:  time.Now().UTC(),
	}
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO exports (project, path, profile, resolution, fps, frames, duration, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Project, rec.Path, rec.Profile, rec.Resolution, rec.FPS, rec.Frames, rec.Duration,
		rec.Elapsed.Milliseconds(), rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return ExportRecord{}, fmt.Errorf("record export: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return rec, nil
}

// Exports lists the most recent exports of a project, newest first. An
// empty project lists every export.
func (s *Store) Exports(ctx context.Context, project string, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, project, path, profile, resolution, fps, frames, duration, elapsed_ms, created_at
		FROM exports`
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		var elapsedMS int64
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.Path, &rec.Profile, &rec.Resolution,
			&rec.FPS, &rec.Frames, &rec.Duration, &elapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
