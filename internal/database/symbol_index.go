package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

// SymbolIndexStore persists the symbol index in PostgreSQL.
// It satisfies symbols.Store.
type SymbolIndexStore struct {
	db *DB
}

// NewSymbolIndexStore creates a store on db
func NewSymbolIndexStore(db *DB) *SymbolIndexStore {
	return &SymbolIndexStore{db: db}
}

// Load reads the whole index. It returns symbols.ErrIndexNotFound if no rebuild has
// ever been saved.
func (s *SymbolIndexStore) Load(ctx context.Context) (symbols.Mapping, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx, `SELECT symbol_count FROM symbol_index_meta WHERE id = 1`).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no rebuild recorded", symbols.ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol index metadata: %w", err)
	}

	rows, err := s.db.conn.QueryContext(ctx, `SELECT symbol, coin_id FROM symbol_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol index: %w", err)
	}
	defer rows.Close()

	mapping := make(symbols.Mapping, count)
	for rows.Next() {
		var symbol string
		var id int64
		if err := rows.Scan(&symbol, &id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %w", symbols.ErrCorruptIndex, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("%w: negative id %d for %s", symbols.ErrCorruptIndex, id, symbol)
		}
		mapping[symbol] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbol index: %w", err)
	}

	if len(mapping) != count {
		return nil, fmt.Errorf("%w: expected %d symbols, found %d", symbols.ErrCorruptIndex, count, len(mapping))
	}
	return mapping, nil
}

// Save replaces the whole index in a single transaction
func (s *SymbolIndexStore) Save(ctx context.Context, m symbols.Mapping) error {
	if err := s.db.ReplaceSymbolIndex(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", symbols.ErrPersistence, err)
	}
	return nil
}

// ReplaceSymbolIndex deletes every stored symbol and inserts m
func (db *DB) ReplaceSymbolIndex(ctx context.Context, m symbols.Mapping) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_index`); err != nil {
		return fmt.Errorf("failed to delete existing symbols: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_index (symbol, coin_id, updated_at)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	keys := make([]string, 0, len(m))
	for symbol := range m {
		keys = append(keys, symbol)
	}
	sort.Strings(keys)

	now := time.Now()
	for _, symbol := range keys {
		if _, err := stmt.ExecContext(ctx, symbol, m[symbol], now); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", symbol, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO symbol_index_meta (id, symbol_count, rebuilt_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			symbol_count = EXCLUDED.symbol_count,
			rebuilt_at = EXCLUDED.rebuilt_at
	`, len(keys), now)
	if err != nil {
		return fmt.Errorf("failed to update symbol index metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
