// Package report renders the monthly accounting PDF. Only declared figures
// are printed; the undeclared amount never leaves the ledger.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

// Generator renders a month into a document.
type Generator interface {
	Render(month models.Month, records []models.Record, recap models.Recap) ([]byte, error)
}

// PDF is the fpdf-backed Generator.
type PDF struct {
	Author string
	// Now stamps the footer. Defaults to time.Now.
	Now func() time.Time
}

func New(author string) *PDF {
	return &PDF{Author: author, Now: time.Now}
}

var (
	headers   = []string{"Jour", "CB", "ESP", "TR", "Dép.", "Total Décl."}
	colWidths = []float64{18, 30, 30, 30, 30, 36}
)

func money(d decimal.Decimal) string {
	return models.FormatAmount(d) + " €"
}

// Render implements Generator.
func (p *PDF) Render(month models.Month, records []models.Record, recap models.Recap) ([]byte, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(fmt.Sprintf("Compta %s", month.Label())), false)
	pdf.SetAuthor(tr(p.Author), false)
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(153, 153, 153)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Généré le %s - %s", now().Format("02/01/2006"), p.Author)), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr("Récapitulatif Comptable"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(0, 8, tr(month.Label()), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	tableWidth := 0.0
	for _, w := range colWidths {
		tableWidth += w
	}
	left := (210 - tableWidth) / 2

	var days []models.Record
	for _, r := range records {
		if month.Contains(r.Date) && !r.IsEmpty() {
			days = append(days, r.Recompute())
		}
	}

	if len(days) == 0 {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 8, tr("Aucune donnée pour ce mois."), "", 1, "C", false, 0, "")
	} else {
		row := func(values []string, bold bool, fill bool) {
			pdf.SetX(left)
			style := ""
			if bold {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 9)
			for i, v := range values {
				align := "R"
				if i == 0 {
					align = "C"
				}
				pdf.CellFormat(colWidths[i], 7, tr(v), "", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFillColor(51, 51, 51)
		pdf.SetTextColor(255, 255, 255)
		row(headers, true, true)

		pdf.SetTextColor(0, 0, 0)
		for i, r := range days {
			pdf.SetFillColor(245, 245, 245)
			day := r.Date[8:10]
			if n, err := strconv.Atoi(day); err == nil {
				day = strconv.Itoa(n)
			}
			row([]string{
				day,
				money(r.CardDeclared()),
				money(r.CashDeclared()),
				money(r.MealVoucherDeclared),
				money(r.ExpenseDeclared),
				money(r.TotalDeclared),
			}, false, i%2 == 0)
		}

		pdf.SetFillColor(51, 51, 51)
		pdf.SetTextColor(255, 255, 255)
		row([]string{
			"TOTAL",
			money(recap.CardDeclared),
			money(recap.CashDeclared),
			money(recap.MealVoucherDeclared),
			money(recap.ExpenseDeclared),
			money(recap.TotalDeclared),
		}, true, true)
	}

	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr("Résumé"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		"Total Cartes Bancaires : " + money(recap.CardDeclared),
		"Total Espèces : " + money(recap.CashDeclared),
		"Total Tickets Restaurant : " + money(recap.MealVoucherDeclared),
		"Total Dépenses : " + money(recap.ExpenseDeclared),
	} {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 8, tr("TOTAL DÉCLARÉ : "+money(recap.TotalDeclared)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Jours d'activité : %d", recap.DaysFilled)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", month, err)
	}
	return buf.Bytes(), nil
}

// Filename is the conventional name of a month's report.
func Filename(month models.Month) string {
	return fmt.Sprintf("compta_%s.pdf", month)
}
