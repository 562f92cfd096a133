package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PortfolioRepository persists imported brokerage ledgers. Entries are the
// ground truth for import-mode backtests; the engine only recomputes running
// totals from them.
type PortfolioRepository struct {
	pool DatabasePool
}

// NewPortfolioRepository creates a portfolio repository.
func NewPortfolioRepository(pool DatabasePool) *PortfolioRepository {
	return &PortfolioRepository{pool: pool}
}

// SaveEntries stores a batch of ledger entries for a portfolio.
func (r *PortfolioRepository) SaveEntries(ctx context.Context, portfolioID string, entries []models.PortfolioEntry) error {
	query := `
		INSERT INTO portfolio_transactions (portfolio_id, trade_date, quantity, unit_price, invested_amount)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, entry := range entries {
		_, err := r.pool.Exec(ctx, query,
			portfolioID, entry.Date, entry.Quantity, entry.UnitPrice, entry.InvestedAmount)
		if err != nil {
			return fmt.Errorf("failed to save portfolio entry: %w", err)
		}
	}
	return nil
}

// GetEntries returns the stored ledger for a portfolio in ascending date
// order.
func (r *PortfolioRepository) GetEntries(ctx context.Context, portfolioID string) ([]models.PortfolioEntry, error) {
	query := `
		SELECT trade_date, quantity, unit_price, invested_amount
		FROM portfolio_transactions
		WHERE portfolio_id = $1
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PortfolioEntry
	for rows.Next() {
		var entry models.PortfolioEntry
		if err := rows.Scan(&entry.Date, &entry.Quantity, &entry.UnitPrice, &entry.InvestedAmount); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio entries: %w", err)
	}

	return entries, nil
}

// DeleteEntries removes all stored entries for a portfolio.
func (r *PortfolioRepository) DeleteEntries(ctx context.Context, portfolioID string) error {
	query := `DELETE FROM portfolio_transactions WHERE portfolio_id = $1`
	if _, err := r.pool.Exec(ctx, query, portfolioID); err != nil {
		return fmt.Errorf("failed to delete portfolio entries: %w", err)
	}
	return nil
}
