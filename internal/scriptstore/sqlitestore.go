package scriptstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// SQLiteStore is the durable alternative to FileStore, backed by
// modernc.org/sqlite (pure Go, no cgo) with schema migrations applied via
// golang-migrate. It implements the same Store contract and additionally
// keeps an append-only table of terminal Execution summaries (written by
// RecordExecutionSummary; rows are never pruned) for operator visibility
// across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at path
// and applies any pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Save(script *automation.Script) (string, error) {
	if err := script.Validate(); err != nil {
		return "", err
	}
	if script.ID == "" {
		script.ID = uuid.NewString()
	}
	if script.Created.IsZero() {
		script.Created = time.Now()
	}

	redacted := script.Schema.RedactSensitive()
	schemaJSON, err := json.Marshal(redacted)
	if err != nil {
		return "", err
	}
	stepsJSON, err := json.Marshal(script.Steps)
	if err != nil {
		return "", err
	}
	script.Checksum = checksumScript(script)

	_, err = s.db.Exec(`
		INSERT INTO scripts (id, name, origin, initial_url, created, last_run, checksum, tags, schedule, steps_json, schema_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, origin=excluded.origin, initial_url=excluded.initial_url,
			last_run=excluded.last_run, checksum=excluded.checksum, tags=excluded.tags,
			schedule=excluded.schedule, steps_json=excluded.steps_json, schema_json=excluded.schema_json`,
		script.ID, script.Name, string(script.Origin), script.InitialURL,
		script.Created, nullableTime(script.LastRun), script.Checksum,
		strings.Join(script.Tags, ","), script.Schedule, string(stepsJSON), string(schemaJSON),
	)
	if err != nil {
		return "", fmt.Errorf("save script: %w", err)
	}
	return script.ID, nil
}

func (s *SQLiteStore) Load(id string) (*automation.Script, error) {
	row := s.db.QueryRow(`SELECT id, name, origin, initial_url, created, last_run, checksum, tags, schedule, steps_json, schema_json FROM scripts WHERE id = ?`, id)
	script, err := scanScript(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.Newf(errkind.SchemaMismatch, "script %s not found", id)
		}
		return nil, err
	}
	return script, nil
}

func (s *SQLiteStore) List() ([]automation.Summary, error) {
	rows, err := s.db.Query(`SELECT id, name, origin, created, last_run, steps_json, tags FROM scripts ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []automation.Summary
	for rows.Next() {
		var (
			sum        automation.Summary
			originStr  string
			createdStr time.Time
			lastRun    sql.NullTime
			stepsJSON  string
			tagsStr    string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &originStr, &createdStr, &lastRun, &stepsJSON, &tagsStr); err != nil {
			return nil, err
		}
		sum.Origin = automation.Origin(originStr)
		sum.Created = createdStr
		if lastRun.Valid {
			sum.LastRun = lastRun.Time
		}
		if tagsStr != "" {
			sum.Tags = strings.Split(tagsStr, ",")
		}
		var steps []automation.Action
		if err := json.Unmarshal([]byte(stepsJSON), &steps); err == nil {
			sum.StepCount = len(steps)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM scripts WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Export(id string) (*Package, error) {
	script, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return buildPackage(script), nil
}

func (s *SQLiteStore) Import(pkg *Package, opts ImportOptions) (*ImportPreview, error) {
	if pkg.FormatVersion != packageFormatVersion {
		return nil, errkind.Newf(errkind.SchemaMismatch, "unsupported package version %d", pkg.FormatVersion)
	}
	if err := pkg.Schema.Validate(); err != nil {
		return nil, err
	}
	if err := pkg.ValidateCompatibility(); err != nil {
		return nil, err
	}

	existing, err := s.List()
	if err != nil {
		return nil, err
	}
	var conflictID string
	nameTaken := false
	names := make(map[string]bool, len(existing))
	for _, sm := range existing {
		names[sm.Name] = true
		if sm.Name == pkg.Name {
			nameTaken = true
			conflictID = sm.ID
		}
	}
	if err := pkg.ValidateDependencies(names); err != nil {
		return nil, err
	}

	preview := &ImportPreview{ScriptName: pkg.Name, ResolvedName: pkg.Name, NameConflict: nameTaken}
	if nameTaken {
		switch opts.Conflict {
		case ConflictSkip:
			preview.Problems = append(preview.Problems, "name conflict: skipped")
			return preview, nil
		case ConflictRename:
			preview.ResolvedName = renamedCopy(pkg.Name)
		case ConflictOverwrite:
		default:
			return nil, errkind.Newf(errkind.SchemaMismatch, "unknown conflict policy %q", opts.Conflict)
		}
	}

	if opts.ValidateOnly {
		return preview, nil
	}

	script := &automation.Script{
		Name:       preview.ResolvedName,
		Origin:     automation.OriginImported,
		InitialURL: pkg.Metadata.InitialURL,
		Steps:      pkg.Steps,
		Schema:     remapSchema(pkg.Schema, opts.Mapping),
		Tags:       pkg.Metadata.Tags,
	}
	if nameTaken && opts.Conflict == ConflictOverwrite {
		script.ID = conflictID
	}
	if _, err := s.Save(script); err != nil {
		return nil, err
	}
	return preview, nil
}

// RecordExecutionSummary appends a terminal Execution's audit row. Purely a
// read-only history trail; it never feeds back into live Execution state.
func (s *SQLiteStore) RecordExecutionSummary(id, scriptID, status string, started, finished time.Time, stepCount int) error {
	_, err := s.db.Exec(`
		INSERT INTO execution_summaries (id, script_id, status, started, finished, step_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, scriptID, status, started, finished, stepCount, finished.Sub(started).Milliseconds(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (*automation.Script, error) {
	var (
		s          automation.Script
		originStr  string
		lastRun    sql.NullTime
		tagsStr    string
		stepsJSON  string
		schemaJSON string
	)
	if err := row.Scan(&s.ID, &s.Name, &originStr, &s.InitialURL, &s.Created, &lastRun, &s.Checksum, &tagsStr, &s.Schedule, &stepsJSON, &schemaJSON); err != nil {
		return nil, err
	}
	s.Origin = automation.Origin(originStr)
	if lastRun.Valid {
		s.LastRun = lastRun.Time
	}
	if tagsStr != "" {
		s.Tags = strings.Split(tagsStr, ",")
	}
	if err := json.Unmarshal([]byte(stepsJSON), &s.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &s.Schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
