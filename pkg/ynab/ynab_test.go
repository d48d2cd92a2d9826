package ynab

import (
	"context"
	"io"
	"testing"

	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

type fakeTransactions struct {
	remote  map[string]*Transaction
	created []transaction.PayloadTransaction
	updated map[string]transaction.PayloadTransaction
}

func (f *fakeTransactions) FindByCustomID(_, _, id, _ string) (*Transaction, error) {
	return f.remote[id], nil
}

func (f *fakeTransactions) CreateTransactions(_ string, p []transaction.PayloadTransaction) error {
	f.created = append(f.created, p...)
	return nil
}

func (f *fakeTransactions) UpdateTransaction(_, id string, p transaction.PayloadTransaction) error {
	f.updated[id] = p
	return nil
}

func newMirror(f *fakeTransactions) *Mirror {
	return &Mirror{txs: f, budgetID: "b", accountID: "a", logger: log.New(io.Discard)}
}

func TestExtractCustomID(t *testing.T) {
	memo := func(s string) *transaction.Transaction { return &transaction.Transaction{Memo: &s} }
	tests := []struct {
		tx   *transaction.Transaction
		want string
	}{
		{memo("compta:2025-06-10,déclaré 1 200€"), "compta:2025-06-10"},
		{memo(`"compta:2025-06-10"`), "compta:2025-06-10"},
		{memo("groceries,whatever"), ""},
		{&transaction.Transaction{}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := extractCustomID(tt.tx); got != tt.want {
			t.Errorf("extractCustomID() = %q, want %q", got, tt.want)
		}
	}
}

func TestMirrorCreatesThenUpdates(t *testing.T) {
	f := &fakeTransactions{remote: map[string]*Transaction{}, updated: map[string]transaction.PayloadTransaction{}}
	m := newMirror(f)
	r := models.Record{Date: "2025-06-10", CardActual: decimal.NewFromInt(1300), TotalDeclared: decimal.RequireFromString("1200.5")}.Recompute()

	if err := m.DayCommitted(context.Background(), r, nil); err != nil {
		t.Fatalf("DayCommitted failed: %v", err)
	}
	if len(f.created) != 1 || f.created[0].Amount != 1200500 {
		t.Fatalf("unexpected created payloads %+v", f.created)
	}

	f.remote[CustomID("2025-06-10")] = &Transaction{Transaction: &transaction.Transaction{ID: "tx-1"}, customID: CustomID("2025-06-10")}
	if err := m.DayCommitted(context.Background(), r, nil); err != nil {
		t.Fatalf("DayCommitted failed: %v", err)
	}
	if _, ok := f.updated["tx-1"]; !ok || len(f.created) != 1 {
		t.Errorf("second commit should update, created=%d updated=%v", len(f.created), f.updated)
	}

	if err := m.DayDeleted(context.Background(), "2025-06-10"); err != nil {
		t.Fatalf("DayDeleted failed: %v", err)
	}
	if f.updated["tx-1"].Amount != 0 {
		t.Errorf("delete should zero the transaction, got %d", f.updated["tx-1"].Amount)
	}
}
