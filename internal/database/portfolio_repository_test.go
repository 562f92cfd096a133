package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// MockPoolAdapter wraps pgxmock.PgxPoolIface to implement DatabasePool interface
type MockPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func NewMockPoolAdapter(mock pgxmock.PgxPoolIface) DatabasePool {
	return &MockPoolAdapter{mock: mock}
}

func (m *MockPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return m.mock.QueryRow(ctx, sql, args...)
}

func (m *MockPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := m.mock.Exec(ctx, sql, args...)
	if err == nil {
		rows := result.RowsAffected()
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT %d", rows)), nil
	}
	return pgconn.CommandTag{}, err
}

func (m *MockPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return m.mock.Query(ctx, sql, args...)
}

func testEntry(day string, quantity, price, invested int64) models.PortfolioEntry {
	date, _ := time.Parse(models.DateLayout, day)
	return models.PortfolioEntry{
		Date:           date,
		Quantity:       decimal.NewFromInt(quantity),
		UnitPrice:      decimal.NewFromInt(price),
		InvestedAmount: decimal.NewFromInt(invested),
	}
}

func TestPortfolioRepository_SaveEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	entries := []models.PortfolioEntry{
		testEntry("2024-01-02", 2, 100, 200),
		testEntry("2024-02-01", 1, 110, 110),
	}

	for _, entry := range entries {
		mock.ExpectExec("INSERT INTO portfolio_transactions").
			WithArgs("portfolio-1", entry.Date, entry.Quantity, entry.UnitPrice, entry.InvestedAmount).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	err = repo.SaveEntries(context.Background(), "portfolio-1", entries)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepository_SaveEntriesError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	entry := testEntry("2024-01-02", 2, 100, 200)

	mock.ExpectExec("INSERT INTO portfolio_transactions").
		WithArgs("portfolio-1", entry.Date, entry.Quantity, entry.UnitPrice, entry.InvestedAmount).
		WillReturnError(errors.New("connection refused"))

	err = repo.SaveEntries(context.Background(), "portfolio-1", []models.PortfolioEntry{entry})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save portfolio entry")
}

func TestPortfolioRepository_GetEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	want := []models.PortfolioEntry{
		testEntry("2024-01-02", 2, 100, 200),
		testEntry("2024-02-01", 1, 110, 110),
	}

	rows := pgxmock.NewRows([]string{"trade_date", "quantity", "unit_price", "invested_amount"})
	for _, e := range want {
		rows.AddRow(e.Date, e.Quantity, e.UnitPrice, e.InvestedAmount)
	}
	mock.ExpectQuery("SELECT trade_date, quantity, unit_price, invested_amount").
		WithArgs("portfolio-1").
		WillReturnRows(rows)

	entries, err := repo.GetEntries(context.Background(), "portfolio-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Date.Equal(want[0].Date))
	assert.True(t, entries[0].Quantity.Equal(want[0].Quantity))
	assert.True(t, entries[1].InvestedAmount.Equal(want[1].InvestedAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepository_GetEntriesEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	mock.ExpectQuery("SELECT trade_date, quantity, unit_price, invested_amount").
		WithArgs("portfolio-9").
		WillReturnRows(pgxmock.NewRows([]string{"trade_date", "quantity", "unit_price", "invested_amount"}))

	entries, err := repo.GetEntries(context.Background(), "portfolio-9")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPortfolioRepository_GetEntriesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	mock.ExpectQuery("SELECT trade_date, quantity, unit_price, invested_amount").
		WithArgs("portfolio-1").
		WillReturnError(errors.New("connection refused"))

	_, err = repo.GetEntries(context.Background(), "portfolio-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query portfolio entries")
}

func TestPortfolioRepository_DeleteEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPortfolioRepository(NewMockPoolAdapter(mock))
	mock.ExpectExec("DELETE FROM portfolio_transactions").
		WithArgs("portfolio-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err = repo.DeleteEntries(context.Background(), "portfolio-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
