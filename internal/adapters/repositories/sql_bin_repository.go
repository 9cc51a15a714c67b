package repositories

import (
	"context"
	"database/sql"
	"errors"
	"warehouse-allocation-service/internal/domain"
)

// SQLBinRepository is the Postgres-backed bin layout store.
type SQLBinRepository struct {
	DB *sql.DB
}

func NewSQLBinRepository(db *sql.DB) *SQLBinRepository {
	return &SQLBinRepository{DB: db}
}

func (s *SQLBinRepository) ListBins(ctx context.Context) ([]domain.BinSpec, error) {
	if s.DB == nil {
		return nil, errors.New("sql bin repository: db is nil")
	}
	return listBins(ctx, s.DB)
}

func (s *SQLBinRepository) ReplaceBins(ctx context.Context, layout []domain.BinSpec) error {
	if s.DB == nil {
		return errors.New("sql bin repository: db is nil")
	}
	return replaceBins(ctx, s.DB, layout, `
	INSERT INTO storage_bins (bin_id, location_code, capacity)
	VALUES ($1, $2, $3);
	`)
}
