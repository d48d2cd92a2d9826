package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

// Draft is the JSON shape the model is asked to answer with. A null or missing
// key means the operator did not mention the field.
type Draft struct {
	Date                *string          `json:"date"`
	DatePhrase          *string          `json:"date_phrase"`
	CardActual          *decimal.Decimal `json:"cb"`
	CashActual          *decimal.Decimal `json:"espece"`
	MealVoucherActual   *decimal.Decimal `json:"ticket_restaurant"`
	ExpenseActual       *decimal.Decimal `json:"depense"`
	TotalActual         *decimal.Decimal `json:"total_reel"`
	TotalDeclared       *decimal.Decimal `json:"total_declare"`
	MealVoucherDeclared *decimal.Decimal `json:"tr_declare"`
	ExpenseDeclared     *decimal.Decimal `json:"dep_declare"`
	Undeclared          *decimal.Decimal `json:"difference"`
}

// DecodeDraft parses a model answer, tolerating markdown code fences around
// the JSON object.
func DecodeDraft(text string) (Draft, error) {
	var d Draft
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if start, end := strings.Index(clean, "{"), strings.LastIndex(clean, "}"); start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return d, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// Partial converts the draft, keeping presence intact.
func (d Draft) Partial() models.Partial {
	var p models.Partial
	if d.Date != nil {
		p.Date = strings.TrimSpace(*d.Date)
	}
	if d.DatePhrase != nil && p.Date != "" {
		p.DatePhrase = strings.TrimSpace(*d.DatePhrase)
	}
	for f, v := range map[models.Field]*decimal.Decimal{
		models.CardActual:          d.CardActual,
		models.CashActual:          d.CashActual,
		models.MealVoucherActual:   d.MealVoucherActual,
		models.ExpenseActual:       d.ExpenseActual,
		models.TotalActual:         d.TotalActual,
		models.TotalDeclared:       d.TotalDeclared,
		models.MealVoucherDeclared: d.MealVoucherDeclared,
		models.ExpenseDeclared:     d.ExpenseDeclared,
		models.Undeclared:          d.Undeclared,
	} {
		if v != nil {
			p.Set(f, *v)
		}
	}
	return p
}
