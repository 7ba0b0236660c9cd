package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sitescout/sitescout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	bbox       TEXT,
	skipped    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS results (
	id            TEXT PRIMARY KEY,
	evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
	parcel_id     TEXT NOT NULL,
	name          TEXT NOT NULL,
	score         INTEGER NOT NULL,
	tier          TEXT NOT NULL,
	justification TEXT NOT NULL,
	components    TEXT,
	attributes    TEXT NOT NULL,
	centroid_lat  REAL NOT NULL,
	centroid_lng  REAL NOT NULL,
	position      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_source ON evaluations(source);
CREATE INDEX IF NOT EXISTS idx_results_evaluation_id ON results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_results_score ON results(score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateEvaluation(ctx context.Context, eval *model.Evaluation) error {
	if eval.ID == "" {
		eval.ID = uuid.New().String()
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	bboxJSON, err := json.Marshal(eval.BBox)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal bbox")
	}
	skippedJSON, err := json.Marshal(eval.Skipped)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal skipped")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO evaluations (id, source, bbox, skipped, created_at) VALUES (?, ?, ?, ?, ?)`,
		eval.ID, eval.Source, string(bboxJSON), string(skippedJSON), eval.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert evaluation")
	}

	for i, r := range eval.Results {
		componentsJSON, err := json.Marshal(r.Components)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal components")
		}
		attrsJSON, err := json.Marshal(r.Attributes)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal attributes")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (id, evaluation_id, parcel_id, name, score, tier, justification, components, attributes, centroid_lat, centroid_lng, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), eval.ID, r.ParcelID, r.Name, r.Score, string(r.Tier),
			r.Justification, string(componentsJSON), string(attrsJSON),
			r.Centroid.Lat, r.Centroid.Lng, i,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert result")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit evaluation")
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, bbox, skipped, created_at FROM evaluations WHERE id = ?`, id,
	)

	eval, err := scanEvaluation(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: evaluation %s", id)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT parcel_id, name, score, tier, justification, components, attributes, centroid_lat, centroid_lng
		 FROM results WHERE evaluation_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query results")
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		eval.Results = append(eval.Results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate results")
	}
	eval.ResultCount = len(eval.Results)

	return eval, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter ListFilter) ([]model.Evaluation, error) {
	query := `SELECT e.id, e.source, e.bbox, e.skipped, e.created_at,
		(SELECT COUNT(*) FROM results r WHERE r.evaluation_id = e.id)
		FROM evaluations e WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND e.source = ?`
		args = append(args, filter.Source)
	}

	query += ` ORDER BY e.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		var (
			eval        model.Evaluation
			bboxJSON    sql.NullString
			skippedJSON sql.NullString
		)
		if err := rows.Scan(&eval.ID, &eval.Source, &bboxJSON, &skippedJSON, &eval.CreatedAt, &eval.ResultCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		if err := decodeEvalJSON(&eval, bboxJSON.String, skippedJSON.String); err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}
	return evals, eris.Wrap(rows.Err(), "sqlite: iterate evaluations")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner) (*model.Evaluation, error) {
	var (
		eval        model.Evaluation
		bboxJSON    sql.NullString
		skippedJSON sql.NullString
	)
	if err := row.Scan(&eval.ID, &eval.Source, &bboxJSON, &skippedJSON, &eval.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan evaluation")
	}
	if err := decodeEvalJSON(&eval, bboxJSON.String, skippedJSON.String); err != nil {
		return nil, err
	}
	return &eval, nil
}

func decodeEvalJSON(eval *model.Evaluation, bboxJSON, skippedJSON string) error {
	if bboxJSON != "" {
		if err := json.Unmarshal([]byte(bboxJSON), &eval.BBox); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal bbox")
		}
	}
	if skippedJSON != "" && skippedJSON != "null" {
		if err := json.Unmarshal([]byte(skippedJSON), &eval.Skipped); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal skipped")
		}
	}
	return nil
}

func scanResult(row rowScanner) (*model.ScoreResult, error) {
	var (
		r              model.ScoreResult
		tier           string
		componentsJSON sql.NullString
		attrsJSON      string
	)
	if err := row.Scan(&r.ParcelID, &r.Name, &r.Score, &tier, &r.Justification,
		&componentsJSON, &attrsJSON, &r.Centroid.Lat, &r.Centroid.Lng); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan result")
	}
	r.Tier = model.Tier(tier)
	if componentsJSON.Valid && componentsJSON.String != "" && componentsJSON.String != "null" {
		if err := json.Unmarshal([]byte(componentsJSON.String), &r.Components); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal components")
		}
	}
	if err := json.Unmarshal([]byte(attrsJSON), &r.Attributes); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal attributes")
	}
	return &r, nil
}
