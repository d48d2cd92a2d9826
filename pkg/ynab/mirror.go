package ynab

import (
	"context"
	"fmt"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

type transactions interface {
	FindByCustomID(budgetID, accountID, id, since string) (*Transaction, error)
	CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error
	UpdateTransaction(budgetID, id string, payload transaction.PayloadTransaction) error
}

// Mirror keeps one YNAB inflow per ledger day carrying the declared total.
// It is a commit hook: each commit creates or updates the day's transaction
// and a delete zeroes it.
type Mirror struct {
	txs       transactions
	budgetID  string
	accountID string
	logger    *log.Logger
}

func NewMirror(c *Client, budgetID, accountID string, logger *log.Logger) *Mirror {
	return &Mirror{txs: c.Transaction(), budgetID: budgetID, accountID: accountID, logger: logger}
}

var thousand = decimal.NewFromInt(1000)

func milliunits(d decimal.Decimal) int64 {
	return d.Mul(thousand).Round(0).IntPart()
}

func (m *Mirror) payload(date string, amount decimal.Decimal, note string) (transaction.PayloadTransaction, error) {
	d, err := api.DateFromString(date)
	if err != nil {
		return transaction.PayloadTransaction{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	payee := "Recette"
	memo := fmt.Sprintf("%s,%s", CustomID(date), note)
	return transaction.PayloadTransaction{
		AccountID: m.accountID,
		Date:      d,
		Amount:    milliunits(amount),
		Cleared:   transaction.ClearingStatusCleared,
		Approved:  true,
		PayeeName: &payee,
		Memo:      &memo,
	}, nil
}

func (m *Mirror) DayCommitted(_ context.Context, r models.Record, _ *models.Record) error {
	p, err := m.payload(r.Date, r.TotalDeclared, "déclaré "+models.FormatEUR(r.TotalDeclared))
	if err != nil {
		return err
	}
	existing, err := m.txs.FindByCustomID(m.budgetID, m.accountID, CustomID(r.Date), r.Date)
	if err != nil {
		return fmt.Errorf("ynab lookup %s: %w", r.Date, err)
	}
	if existing != nil {
		if err := m.txs.UpdateTransaction(m.budgetID, existing.ID, p); err != nil {
			return fmt.Errorf("ynab update %s: %w", r.Date, err)
		}
		m.logger.Info("ynab transaction updated", "date", r.Date, "id", existing.ID)
		return nil
	}
	if err := m.txs.CreateTransactions(m.budgetID, []transaction.PayloadTransaction{p}); err != nil {
		return fmt.Errorf("ynab create %s: %w", r.Date, err)
	}
	m.logger.Info("ynab transaction created", "date", r.Date)
	return nil
}

func (m *Mirror) DayDeleted(_ context.Context, date string) error {
	existing, err := m.txs.FindByCustomID(m.budgetID, m.accountID, CustomID(date), date)
	if err != nil {
		return fmt.Errorf("ynab lookup %s: %w", date, err)
	}
	if existing == nil {
		return nil
	}
	p, err := m.payload(date, decimal.Zero, "supprimé")
	if err != nil {
		return err
	}
	if err := m.txs.UpdateTransaction(m.budgetID, existing.ID, p); err != nil {
		return fmt.Errorf("ynab update %s: %w", date, err)
	}
	m.logger.Info("ynab transaction zeroed", "date", date, "id", existing.ID)
	return nil
}
