package stockRepo

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	"github.com/jmoiron/sqlx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepository_ClaimUnit(t *testing.T) {
	t.Parallel()

	t.Run("finite unit locked and flagged in one transaction", func(t *testing.T) {
		db := &fakeTxDB{
			unit: &domain.StockUnit{ID: 7, ItemName: "key", Value: "AAAA"},
		}
		repo := New(db, testLogger())

		unit, err := repo.ClaimUnit(context.Background(), "key")
		if err != nil {
			t.Fatalf("ClaimUnit: %v", err)
		}
		if unit.ID != 7 || unit.Value != "AAAA" {
			t.Fatalf("unexpected unit %+v", unit)
		}
		if db.transactions != 1 {
			t.Fatalf("expected claim inside a transaction, got %d", db.transactions)
		}
		if !db.flagged {
			t.Fatalf("expected claimed flag update in the same transaction")
		}
	})

	t.Run("empty pool maps to stock exhausted", func(t *testing.T) {
		repo := New(&fakeTxDB{}, testLogger())

		_, err := repo.ClaimUnit(context.Background(), "key")
		if !errors.Is(err, domain.ErrStockExhausted) {
			t.Fatalf("expected ErrStockExhausted, got %v", err)
		}
	})

	t.Run("update failure rolls back the claim", func(t *testing.T) {
		db := &fakeTxDB{
			unit:      &domain.StockUnit{ID: 7, ItemName: "key", Value: "AAAA"},
			updateErr: errors.New("connection reset"),
		}
		repo := New(db, testLogger())

		_, err := repo.ClaimUnit(context.Background(), "key")
		if err == nil {
			t.Fatalf("expected error from failed update")
		}
		if !db.rolledBack {
			t.Fatalf("expected transaction rollback on update failure")
		}
	})

	t.Run("infinite unit claimed without transaction", func(t *testing.T) {
		db := &fakeTxDB{
			infinite: &domain.StockUnit{ID: 1, ItemName: "sub", Value: "link", IsInfinity: true},
		}
		repo := New(db, testLogger())

		unit, err := repo.ClaimUnit(context.Background(), "sub")
		if err != nil {
			t.Fatalf("ClaimUnit: %v", err)
		}
		if !unit.IsInfinity {
			t.Fatalf("expected infinite unit, got %+v", unit)
		}
		if db.transactions != 0 {
			t.Fatalf("infinite claim must not open a transaction")
		}
	})
}

// fakeTxDB минимальная реализация Transactional под сценарии ClaimUnit:
// infinite хранит бесконечный юнит, unit - свободный конечный.
type fakeTxDB struct {
	infinite     *domain.StockUnit
	unit         *domain.StockUnit
	updateErr    error
	transactions int
	flagged      bool
	rolledBack   bool
}

func (f *fakeTxDB) Get(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
	if strings.Contains(query, "is_infinity") && !strings.Contains(query, "NOT is_infinity") {
		if f.infinite == nil {
			return sql.ErrNoRows
		}
		*dest.(*domain.StockUnit) = *f.infinite
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeTxDB) Select(context.Context, interface{}, string, ...interface{}) error { return nil }
func (f *fakeTxDB) Exec(context.Context, string, ...interface{}) error                { return nil }
func (f *fakeTxDB) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, nil
}
func (f *fakeTxDB) NamedExec(context.Context, string, interface{}) error { return nil }
func (f *fakeTxDB) NamedExecWithResult(context.Context, string, interface{}) (int64, error) {
	return 0, nil
}
func (f *fakeTxDB) QueryRow(context.Context, string, ...interface{}) *sqlx.Row { return nil }
func (f *fakeTxDB) NamedQuery(context.Context, string, interface{}) (*sqlx.Rows, error) {
	return nil, nil
}

func (f *fakeTxDB) BeginTx(context.Context) (persistence.Transaction, error) {
	f.transactions++
	return &fakeTx{db: f}, nil
}

func (f *fakeTxDB) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	tx, err := f.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return rollbackErr
		}
		return err
	}
	return tx.Commit()
}

type fakeTx struct {
	db *fakeTxDB
}

func (t *fakeTx) Get(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
	if t.db.unit == nil {
		return sql.ErrNoRows
	}
	*dest.(*domain.StockUnit) = *t.db.unit
	return nil
}

func (t *fakeTx) Exec(_ context.Context, query string, _ ...interface{}) error {
	if t.db.updateErr != nil {
		return t.db.updateErr
	}
	if strings.Contains(query, "SET claimed = TRUE") {
		t.db.flagged = true
	}
	return nil
}

func (t *fakeTx) Select(context.Context, interface{}, string, ...interface{}) error { return nil }
func (t *fakeTx) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, nil
}
func (t *fakeTx) NamedExec(context.Context, string, interface{}) error { return nil }
func (t *fakeTx) NamedExecWithResult(context.Context, string, interface{}) (int64, error) {
	return 0, nil
}
func (t *fakeTx) QueryRow(context.Context, string, ...interface{}) *sqlx.Row { return nil }
func (t *fakeTx) NamedQuery(context.Context, string, interface{}) (*sqlx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) Commit() error { return nil }

func (t *fakeTx) Rollback() error {
	t.db.rolledBack = true
	return nil
}
