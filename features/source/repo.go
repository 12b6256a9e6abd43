package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM sources WHERE content_hash = $1 AND deleted_at IS NULL)`
	err := r.db.QueryRowContext(ctx, query, hash).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Save(ctx context.Context, src *Source) error {
	messages, err := json.Marshal(src.Messages)
	if err != nil {
		return err
	}
	query := `INSERT INTO sources (type, locator, content_hash, index_name, status, messages) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = r.db.QueryRowContext(ctx, query, src.Type, src.Locator, src.ContentHash, src.IndexName, src.Status, messages).Scan(&src.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status, lastError string) error {
	query := `UPDATE sources SET status = $1, last_error = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, lastError, id)
	return err
}

func (r *PostgresRepo) UpdateResult(ctx context.Context, id, status, indexName string, records int) error {
	query := `UPDATE sources SET status = $1, index_name = $2, record_count = $3, last_error = '', updated_at = NOW() WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, status, indexName, records, id)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Source, error) {
	query := `SELECT id, type, locator, index_name, status, record_count, last_error FROM sources WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Type, &s.Locator, &s.IndexName, &s.Status, &s.RecordCount, &s.LastError); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Source, error) {
	s := &Source{}
	var messages []byte
	query := `SELECT id, type, locator, index_name, status, record_count, last_error, messages FROM sources WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Type, &s.Locator, &s.IndexName, &s.Status, &s.RecordCount, &s.LastError, &messages)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &s.Messages); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE sources SET deleted_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM sources WHERE deleted_at IS NULL GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
