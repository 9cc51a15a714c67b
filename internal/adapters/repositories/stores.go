package repositories

import (
	"database/sql"
	"fmt"
	"warehouse-allocation-service/internal/platform/db"
	"warehouse-allocation-service/internal/ports"
)

// Stores bundles the persistence adapters for one database.
type Stores struct {
	Events ports.EventLog
	Bins   ports.BinRepository
}

// NewStores initializes the schema for dialect and returns its adapters.
func NewStores(conn *sql.DB, dialect string) (Stores, error) {
	switch dialect {
	case db.DialectPostgres:
		if err := InitPostgresSchema(conn); err != nil {
			return Stores{}, fmt.Errorf("new stores: %w", err)
		}
		return Stores{Events: NewSQLEventLog(conn), Bins: NewSQLBinRepository(conn)}, nil
	case db.DialectSQLite:
		if err := InitSchema(conn); err != nil {
			return Stores{}, fmt.Errorf("new stores: %w", err)
		}
		return Stores{Events: NewSqliteEventLog(conn), Bins: NewSqliteBinRepository(conn)}, nil
	default:
		return Stores{}, fmt.Errorf("new stores: unknown dialect %q", dialect)
	}
}
