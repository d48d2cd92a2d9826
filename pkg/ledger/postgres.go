package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/yurifrl/compta/pkg/models"
)

const ledgerSchema = `CREATE TABLE IF NOT EXISTS ledger_days (
	day                   DATE PRIMARY KEY,
	card_actual           NUMERIC(12,2) NOT NULL,
	cash_actual           NUMERIC(12,2) NOT NULL,
	meal_voucher_actual   NUMERIC(12,2) NOT NULL,
	expense_actual        NUMERIC(12,2) NOT NULL,
	total_actual          NUMERIC(12,2) NOT NULL,
	total_declared        NUMERIC(12,2) NOT NULL,
	meal_voucher_declared NUMERIC(12,2) NOT NULL,
	expense_declared      NUMERIC(12,2) NOT NULL,
	undeclared            NUMERIC(12,2) NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `to_char(day, 'YYYY-MM-DD'), card_actual, cash_actual, meal_voucher_actual, expense_actual,
	total_declared, meal_voucher_declared, expense_declared`

// PostgresStore keeps the ledger in a ledger_days table. Months are ranges of
// that table, so there is nothing to create per month.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with the lib/pq driver and creates the table when
// missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storeErr("open", "", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("open", "", err)
	}
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		db.Close()
		return nil, storeErr("open", "", fmt.Errorf("create ledger table: %w", err))
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.Record, error) {
	var r models.Record
	err := row.Scan(
		&r.Date,
		&r.CardActual,
		&r.CashActual,
		&r.MealVoucherActual,
		&r.ExpenseActual,
		&r.TotalDeclared,
		&r.MealVoucherDeclared,
		&r.ExpenseDeclared,
	)
	return r.Recompute().Persisted(), err
}

func (p *PostgresStore) ReadDay(ctx context.Context, date string) (*models.Record, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM ledger_days WHERE day = $1`, date)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read", date, err)
	}
	return &r, nil
}

func (p *PostgresStore) WriteDay(ctx context.Context, date string, r models.Record) error {
	r = prepare(date, r)
	const query = `INSERT INTO ledger_days (day, card_actual, cash_actual, meal_voucher_actual, expense_actual,
		total_actual, total_declared, meal_voucher_declared, expense_declared, undeclared, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (day) DO UPDATE SET
		card_actual = EXCLUDED.card_actual,
		cash_actual = EXCLUDED.cash_actual,
		meal_voucher_actual = EXCLUDED.meal_voucher_actual,
		expense_actual = EXCLUDED.expense_actual,
		total_actual = EXCLUDED.total_actual,
		total_declared = EXCLUDED.total_declared,
		meal_voucher_declared = EXCLUDED.meal_voucher_declared,
		expense_declared = EXCLUDED.expense_declared,
		undeclared = EXCLUDED.undeclared,
		updated_at = now()`

	_, err := p.db.ExecContext(ctx, query, date,
		r.CardActual, r.CashActual, r.MealVoucherActual, r.ExpenseActual, r.TotalActual,
		r.TotalDeclared, r.MealVoucherDeclared, r.ExpenseDeclared, r.Undeclared)
	return storeErr("write", date, err)
}

func (p *PostgresStore) ReadMonth(ctx context.Context, month models.Month) ([]models.Record, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM ledger_days WHERE day >= $1 AND day < $2 ORDER BY day`,
		month.Date(1), month.Offset(1).Date(1))
	if err != nil {
		return nil, storeErr("read month", month.String(), err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr("read month", month.String(), err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read month", month.String(), err)
	}
	return out, nil
}

func (p *PostgresStore) DeleteDay(ctx context.Context, date string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM ledger_days WHERE day = $1`, date)
	if err != nil {
		return storeErr("delete", date, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storeErr("delete", date, ErrNoEntry)
	}
	return nil
}
