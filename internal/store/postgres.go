package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sitescout/sitescout/internal/db"
	"github.com/sitescout/sitescout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	bbox       JSONB,
	skipped    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS results (
	id            TEXT PRIMARY KEY,
	evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
	parcel_id     TEXT NOT NULL,
	name          TEXT NOT NULL,
	score         INTEGER NOT NULL,
	tier          TEXT NOT NULL,
	justification TEXT NOT NULL,
	components    JSONB,
	attributes    JSONB NOT NULL,
	centroid_lat  DOUBLE PRECISION NOT NULL,
	centroid_lng  DOUBLE PRECISION NOT NULL,
	position      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_source ON evaluations(source);
CREATE INDEX IF NOT EXISTS idx_results_evaluation_id ON results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_results_score ON results(score);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateEvaluation(ctx context.Context, eval *model.Evaluation) error {
	if eval.ID == "" {
		eval.ID = uuid.New().String()
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	bboxJSON, err := json.Marshal(eval.BBox)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal bbox")
	}
	skippedJSON, err := json.Marshal(eval.Skipped)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal skipped")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO evaluations (id, source, bbox, skipped, created_at) VALUES ($1, $2, $3, $4, $5)`,
		eval.ID, eval.Source, bboxJSON, skippedJSON, eval.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert evaluation")
	}

	for i, r := range eval.Results {
		componentsJSON, err := json.Marshal(r.Components)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal components")
		}
		attrsJSON, err := json.Marshal(r.Attributes)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal attributes")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO results (id, evaluation_id, parcel_id, name, score, tier, justification, components, attributes, centroid_lat, centroid_lng, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New().String(), eval.ID, r.ParcelID, r.Name, r.Score, string(r.Tier),
			r.Justification, componentsJSON, attrsJSON,
			r.Centroid.Lat, r.Centroid.Lng, i,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert result")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit evaluation")
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, bbox, skipped, created_at FROM evaluations WHERE id = $1`, id,
	)

	var (
		eval        model.Evaluation
		bboxJSON    []byte
		skippedJSON []byte
	)
	if err := row.Scan(&eval.ID, &eval.Source, &bboxJSON, &skippedJSON, &eval.CreatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: evaluation %s", id)
		}
		return nil, eris.Wrap(err, "postgres: scan evaluation")
	}
	if err := decodePGEvalJSON(&eval, bboxJSON, skippedJSON); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT parcel_id, name, score, tier, justification, components, attributes, centroid_lat, centroid_lng
		 FROM results WHERE evaluation_id = $1 ORDER BY position`, id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query results")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r              model.ScoreResult
			tier           string
			componentsJSON []byte
			attrsJSON      []byte
		)
		if err := rows.Scan(&r.ParcelID, &r.Name, &r.Score, &tier, &r.Justification,
			&componentsJSON, &attrsJSON, &r.Centroid.Lat, &r.Centroid.Lng); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		r.Tier = model.Tier(tier)
		if len(componentsJSON) > 0 {
			if err := json.Unmarshal(componentsJSON, &r.Components); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal components")
			}
		}
		if err := json.Unmarshal(attrsJSON, &r.Attributes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal attributes")
		}
		eval.Results = append(eval.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate results")
	}
	eval.ResultCount = len(eval.Results)

	return &eval, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter ListFilter) ([]model.Evaluation, error) {
	query := `SELECT e.id, e.source, e.bbox, e.skipped, e.created_at,
		(SELECT COUNT(*) FROM results r WHERE r.evaluation_id = e.id)
		FROM evaluations e`
	var args []any
	argNum := 1

	if filter.Source != "" {
		query += ` WHERE e.source = $1`
		args = append(args, filter.Source)
		argNum++
	}

	query += ` ORDER BY e.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argNum)
	args = append(args, limit)
	argNum++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argNum)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		var (
			eval        model.Evaluation
			bboxJSON    []byte
			skippedJSON []byte
		)
		if err := rows.Scan(&eval.ID, &eval.Source, &bboxJSON, &skippedJSON, &eval.CreatedAt, &eval.ResultCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		if err := decodePGEvalJSON(&eval, bboxJSON, skippedJSON); err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}
	return evals, eris.Wrap(rows.Err(), "postgres: iterate evaluations")
}

func decodePGEvalJSON(eval *model.Evaluation, bboxJSON, skippedJSON []byte) error {
	if len(bboxJSON) > 0 {
		if err := json.Unmarshal(bboxJSON, &eval.BBox); err != nil {
			return eris.Wrap(err, "postgres: unmarshal bbox")
		}
	}
	if len(skippedJSON) > 0 && string(skippedJSON) != "null" {
		if err := json.Unmarshal(skippedJSON, &eval.Skipped); err != nil {
			return eris.Wrap(err, "postgres: unmarshal skipped")
		}
	}
	return nil
}
