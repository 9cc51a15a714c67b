package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"warehouse-allocation-service/internal/domain"
)

// SQLite-backed implementation of the BinRepository port.
type SqliteBinRepository struct{ DB *sql.DB }

func NewSqliteBinRepository(db *sql.DB) *SqliteBinRepository {
	return &SqliteBinRepository{DB: db}
}

// Return the stored bin layout ordered by bin id.
func (s *SqliteBinRepository) ListBins(ctx context.Context) ([]domain.BinSpec, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite bin repository: DB is nil")
	}
	return listBins(ctx, s.DB)
}

// Replace the stored layout. Bin ids are assigned 1..n in layout order.
func (s *SqliteBinRepository) ReplaceBins(ctx context.Context, layout []domain.BinSpec) error {
	if s.DB == nil {
		return errors.New("sqlite bin repository: DB is nil")
	}
	return replaceBins(ctx, s.DB, layout, `
	INSERT INTO storage_bins (bin_id, location_code, capacity)
	VALUES (?, ?, ?);
	`)
}

func listBins(ctx context.Context, db *sql.DB) ([]domain.BinSpec, error) {
	query := `
	SELECT
		location_code,
		capacity
	FROM storage_bins
	ORDER BY bin_id;
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bins: query storage_bins table: %w", err)
	}
	defer rows.Close()

	layout := make([]domain.BinSpec, 0, 64)
	for rows.Next() {
		var b domain.BinSpec
		if err := rows.Scan(&b.LocationCode, &b.Capacity); err != nil {
			return nil, fmt.Errorf("list bins: scan row: %w", err)
		}
		layout = append(layout, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bins: row iteration: %w", err)
	}

	return layout, nil
}

func replaceBins(ctx context.Context, db *sql.DB, layout []domain.BinSpec, insertQuery string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace bins: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM storage_bins;`); err != nil {
		return fmt.Errorf("replace bins: clear storage_bins: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("replace bins: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, b := range layout {
		if _, err := stmt.ExecContext(ctx, i+1, b.LocationCode, b.Capacity); err != nil {
			return fmt.Errorf("replace bins: insert %q: %w", b.LocationCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace bins commit: %w", err)
	}
	return nil
}
