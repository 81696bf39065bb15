package favorite

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL saved route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectSavedRoutes = `
	SELECT owner_id, from_station, to_station, route_no, created_at
	FROM saved_routes
	WHERE owner_id = $1
	ORDER BY position
`

// Load returns the owner's saved routes in insertion order.
func (r *PostgresRepository) Load(ctx context.Context, ownerID string) (*Set, error) {
	return loadSet(ctx, r.pool, ownerID)
}

// Update locks the owner's rows for the duration of a transaction, applies fn
// and writes back the difference.
func (r *PostgresRepository) Update(ctx context.Context, ownerID string, fn func(*Set) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		before, err := loadSet(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		after := before.Clone()
		if err := fn(after); err != nil {
			return err
		}

		removed, added := before.Diff(after)
		for _, f := range removed {
			if _, err := tx.Exec(ctx, `
				DELETE FROM saved_routes
				WHERE owner_id = $1 AND from_station = $2 AND to_station = $3 AND route_no = $4
			`, ownerID, f.From, f.To, f.RouteNo); err != nil {
				return fmt.Errorf("delete saved route: %w", err)
			}
		}

		for _, f := range added {
			if _, err := tx.Exec(ctx, `
				INSERT INTO saved_routes (owner_id, from_station, to_station, route_no, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, ownerID, f.From, f.To, f.RouteNo, f.CreatedAt); err != nil {
				return fmt.Errorf("insert saved route: %w", err)
			}
		}

		return nil
	})
}

// Clear deletes all of the owner's saved routes.
func (r *PostgresRepository) Clear(ctx context.Context, ownerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM saved_routes WHERE owner_id = $1`, ownerID)
	return err
}

// ListOwnersRoutes returns station pairs ordered by how many owners saved them.
func (r *PostgresRepository) ListOwnersRoutes(ctx context.Context, limit int) ([]Pair, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT from_station, to_station, COUNT(DISTINCT owner_id) AS saves
		FROM saved_routes
		GROUP BY from_station, to_station
		ORDER BY saves DESC, from_station, to_station
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.From, &p.To, &p.Saves); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadSet(ctx context.Context, q querier, ownerID string) (*Set, error) {
	rows, err := q.Query(ctx, selectSavedRoutes, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query saved routes: %w", err)
	}
	defer rows.Close()

	s := &Set{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.OwnerID, &f.From, &f.To, &f.RouteNo, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved route: %w", err)
		}
		s.Add(f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved routes: %w", err)
	}

	return s, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
