package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_competitors_project ON competitors(project_id);

CREATE TABLE IF NOT EXISTS artifacts (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	run_id         TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL,
	schema_version INTEGER NOT NULL DEFAULT 0,
	content        TEXT,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_type ON artifacts(project_id, type);
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
`

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema. The parent
// directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// ListCompetitors returns a project's competitors ordered by id.
func (s *SQLiteStore) ListCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, url FROM competitors WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, utils.NewAppError("sqlite.ListCompetitors", "query failed", err)
	}
	defer rows.Close()

	competitors := []models.Competitor{}
	for rows.Next() {
		var c models.Competitor
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.URL); err != nil {
			return nil, utils.NewAppError("sqlite.ListCompetitors", "scan failed", err)
		}
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

// SaveCompetitor inserts or replaces a competitor.
func (s *SQLiteStore) SaveCompetitor(ctx context.Context, c models.Competitor) error {
	if c.ProjectID == "" {
		return fmt.Errorf("competitor project id is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO competitors (id, project_id, name, url) VALUES (?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.URL)
	if err != nil {
		return utils.NewAppError("sqlite.SaveCompetitor", "insert failed", err)
	}
	return nil
}

// ListArtifacts returns a project's artifacts of the given types, newest first. An empty types
// list matches every type.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, projectID string, types []models.ArtifactType) ([]models.Artifact, error) {
	query := `SELECT id, project_id, run_id, type, schema_version, content, created_at FROM artifacts WHERE project_id = ?`
	args := []any{projectID}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError("sqlite.ListArtifacts", "query failed", err)
	}
	defer rows.Close()

	artifacts := []models.Artifact{}
	for rows.Next() {
		var (
			a         models.Artifact
			typ       string
			content   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.RunID, &typ, &a.SchemaVersion, &content, &createdAt); err != nil {
			return nil, utils.NewAppError("sqlite.ListArtifacts", "scan failed", err)
		}
		a.Type = models.ArtifactType(typ)
		if content.Valid {
			a.Content = json.RawMessage(content.String)
		}
		if a.CreatedAt, err = utils.ParseRFC3339(createdAt); err != nil {
			return nil, utils.NewAppError("sqlite.ListArtifacts", "bad created_at", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// SaveArtifact inserts or replaces an artifact. Missing ids and timestamps are filled in.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, a models.Artifact) error {
	if err := validateArtifact(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	var content any
	if len(a.Content) > 0 {
		content = string(a.Content)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (id, project_id, run_id, type, schema_version, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.RunID, string(a.Type), a.SchemaVersion, content, utils.FormatTimestamp(a.CreatedAt))
	if err != nil {
		return utils.NewAppError("sqlite.SaveArtifact", "insert failed", err)
	}
	return nil
}

// RunsSince lists runs whose newest artifact was created after since, oldest first.
func (s *SQLiteStore) RunsSince(ctx context.Context, since time.Time) ([]models.RunRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, run_id, MAX(created_at) AS latest
		   FROM artifacts
		  WHERE run_id != ''
		  GROUP BY project_id, run_id
		 HAVING latest > ?
		  ORDER BY latest`, utils.FormatTimestamp(since))
	if err != nil {
		return nil, utils.NewAppError("sqlite.RunsSince", "query failed", err)
	}
	defer rows.Close()

	runs := []models.RunRef{}
	for rows.Next() {
		var (
			ref    models.RunRef
			latest string
		)
		if err := rows.Scan(&ref.ProjectID, &ref.RunID, &latest); err != nil {
			return nil, utils.NewAppError("sqlite.RunsSince", "scan failed", err)
		}
		if ref.CreatedAt, err = utils.ParseRFC3339(latest); err != nil {
			return nil, utils.NewAppError("sqlite.RunsSince", "bad created_at", err)
		}
		runs = append(runs, ref)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}
