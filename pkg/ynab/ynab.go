package ynab

import (
	"fmt"
	"strings"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
)

// customIDPrefix marks transactions written by the mirror. The custom ID is
// the first comma-separated field of the memo.
const customIDPrefix = "compta:"

// Client wraps the YNAB client with the lookups the mirror needs.
type Client struct {
	client ynab.ClientServicer
}

// TransactionService wraps the original transaction service
type TransactionService struct {
	original *transaction.Service
}

// Transaction is a remote transaction with the custom ID read from its memo.
type Transaction struct {
	*transaction.Transaction
	customID string
}

func (t *Transaction) CustomID() string {
	return t.customID
}

func extractCustomID(tx *transaction.Transaction) string {
	if tx == nil || tx.Memo == nil {
		return ""
	}
	memo := strings.Trim(*tx.Memo, "\"")
	if idx := strings.Index(memo, ","); idx > 0 {
		memo = memo[:idx]
	}
	if !strings.HasPrefix(memo, customIDPrefix) {
		return ""
	}
	return memo
}

// CustomID is the memo tag identifying the mirror transaction of a day.
func CustomID(date string) string {
	return customIDPrefix + date
}

func New(token string) *Client {
	return &Client{client: ynab.NewClient(token)}
}

func (c *Client) Transaction() *TransactionService {
	return &TransactionService{original: c.client.Transaction()}
}

// GetTransactionsByAccount lists an account's transactions since the given
// ISO date.
func (ts *TransactionService) GetTransactionsByAccount(budgetID, accountID, since string) ([]*Transaction, error) {
	var filter *transaction.Filter
	if since != "" {
		d, err := api.DateFromString(since)
		if err != nil {
			return nil, fmt.Errorf("invalid since date %q: %w", since, err)
		}
		filter = &transaction.Filter{Since: &d}
	}
	originals, err := ts.original.GetTransactionsByAccount(budgetID, accountID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Transaction, 0, len(originals))
	for _, tx := range originals {
		out = append(out, &Transaction{Transaction: tx, customID: extractCustomID(tx)})
	}
	return out, nil
}

// FindByCustomID returns the account transaction tagged with id, or nil.
func (ts *TransactionService) FindByCustomID(budgetID, accountID, id, since string) (*Transaction, error) {
	txs, err := ts.GetTransactionsByAccount(budgetID, accountID, since)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if tx.CustomID() == id && !tx.Deleted {
			return tx, nil
		}
	}
	return nil, nil
}

// CreateTransactions creates multiple transactions in one API call
func (ts *TransactionService) CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error {
	if len(payloads) == 0 {
		return nil
	}
	_, err := ts.original.CreateTransactions(budgetID, payloads)
	return err
}

func (ts *TransactionService) UpdateTransaction(budgetID, id string, payload transaction.PayloadTransaction) error {
	_, err := ts.original.UpdateTransaction(budgetID, id, payload)
	return err
}
