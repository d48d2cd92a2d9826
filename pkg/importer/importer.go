// Package importer reads day rows from legacy ledger files (.xls, .xlsx, .csv)
// into reconciled, validated records.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
	"github.com/yurifrl/compta/pkg/reconcile"
	"github.com/yurifrl/compta/pkg/validate"
)

// Row is one imported day. Err is set when the row was understood but is
// invalid; such rows are reported and skipped.
type Row struct {
	Sheet  string
	Line   int // 1-based line in the sheet
	Record models.Record
	Err    error
}

type Importer struct {
	validator *validate.Validator
	logger    *log.Logger
	now       func() time.Time
}

func New(validator *validate.Validator, logger *log.Logger) *Importer {
	return &Importer{validator: validator, logger: logger, now: time.Now}
}

// ReadFile reads every day row of path. An empty sheet name reads every
// sheet of a workbook.
func (i *Importer) ReadFile(path, sheet string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return i.Read(data, filepath.Base(path), sheet)
}

// Read dispatches on the file extension.
func (i *Importer) Read(data []byte, filename, sheet string) ([]Row, error) {
	var sheets map[string][][]string
	var order []string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		sheets, order, err = readXLS(data, sheet)
	case ".xlsx":
		sheets, order, err = readXLSX(data, sheet)
	case ".csv":
		var rows [][]string
		rows, err = readCSV(data)
		sheets, order = map[string][][]string{"": rows}, []string{""}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var out []Row
	for _, name := range order {
		rows, err := i.Rows(sheets[name])
		if err != nil {
			i.logger.Debug("sheet skipped", "file", filename, "sheet", name, "reason", err)
			continue
		}
		for k := range rows {
			rows[k].Sheet = name
		}
		out = append(out, rows...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no day rows found in %s", filename)
	}
	i.logger.Info("file read", "file", filename, "rows", len(out))
	return out, nil
}

func readXLS(data []byte, only string) (map[string][][]string, []string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, nil, fmt.Errorf("error opening workbook: %w", err)
	}
	sheets := map[string][][]string{}
	var order []string
	for n := 0; n < wb.NumSheets(); n++ {
		ws := wb.GetSheet(n)
		if ws == nil || (only != "" && ws.Name != only) {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets[ws.Name] = rows
		order = append(order, ws.Name)
	}
	if len(order) == 0 {
		return nil, nil, fmt.Errorf("sheet %q not found", only)
	}
	return sheets, order, nil
}

func readXLSX(data []byte, only string) (map[string][][]string, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheets := map[string][][]string{}
	var order []string
	for _, name := range f.GetSheetList() {
		if only != "" && name != only {
			continue
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("error reading sheet %s: %w", name, err)
		}
		sheets[name] = rows
		order = append(order, name)
	}
	if len(order) == 0 {
		return nil, nil, fmt.Errorf("sheet %q not found", only)
	}
	return sheets, order, nil
}

func readCSV(data []byte) ([][]string, error) {
	delim := ','
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		delim = ';'
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1 // allow variable columns
	return r.ReadAll()
}

type column int

const (
	colSkip column = iota
	colDate
	colField
)

type mapping struct {
	date   int
	fields map[int]models.Field
}

// classify maps a folded header to a column.
func classify(header string) (column, models.Field) {
	h := parser.Fold(strings.TrimSpace(header))
	words := strings.FieldsFunc(h, func(r rune) bool { return r == ' ' || r == '.' || r == '_' || r == '-' })
	has := func(prefixes ...string) bool {
		for _, w := range words {
			for _, p := range prefixes {
				if w == p || (len(p) > 2 && strings.HasPrefix(w, p)) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case h == "":
		return colSkip, 0
	case has("date", "jour"):
		return colDate, 0
	case has("non"), has("diff", "difference"):
		return colSkip, 0
	case has("declar", "decl"):
		switch {
		case has("tr", "ticket"):
			return colField, models.MealVoucherDeclared
		case has("dep", "depense"):
			return colField, models.ExpenseDeclared
		default:
			return colField, models.TotalDeclared
		}
	case has("total"):
		return colSkip, 0 // actual total is always recomputed
	case has("cb", "carte"):
		return colField, models.CardActual
	case has("esp", "espece", "cash", "liquide"):
		return colField, models.CashActual
	case has("tr", "ticket"):
		return colField, models.MealVoucherActual
	case has("dep", "depense"):
		return colField, models.ExpenseActual
	}
	return colSkip, 0
}

func headerMapping(row []string) (mapping, bool) {
	m := mapping{date: -1, fields: map[int]models.Field{}}
	for i, cell := range row {
		kind, f := classify(cell)
		switch kind {
		case colDate:
			if m.date < 0 {
				m.date = i
			}
		case colField:
			m.fields[i] = f
		}
	}
	return m, m.date >= 0 && len(m.fields) > 0
}

// Rows finds the header within the first rows of a sheet and converts every
// following row.
func (i *Importer) Rows(cells [][]string) ([]Row, error) {
	start := -1
	var m mapping
	for r := 0; r < len(cells) && r < 10; r++ {
		if mm, ok := headerMapping(cells[r]); ok {
			start, m = r, mm
			break
		}
	}
	if start < 0 {
		return nil, errors.New("no header row with a date and amount columns")
	}

	var out []Row
	for r := start + 1; r < len(cells); r++ {
		row, ok := i.row(cells[r], m)
		if !ok {
			continue
		}
		row.Line = r + 1
		out = append(out, row)
	}
	return out, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (i *Importer) row(cells []string, m mapping) (Row, bool) {
	rawDate := cellAt(cells, m.date)
	if rawDate == "" || strings.EqualFold(rawDate, "total") {
		return Row{}, false
	}

	var p models.Partial
	var errs []error
	for idx, f := range m.fields {
		raw := cellAt(cells, idx)
		if raw == "" {
			continue
		}
		v, err := parseAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: montant illisible %q", f, raw))
			continue
		}
		p.Set(f, v)
	}
	if p.IsEmpty() && len(errs) == 0 {
		// Dated but blank, as in a pre-formatted month sheet.
		return Row{}, false
	}

	p.Date = i.parseDate(rawDate)
	rec := reconcile.Reconcile(p, nil)
	if rec.IsEmpty() && len(errs) == 0 {
		return Row{}, false
	}
	res := i.validator.Record(rec)
	for _, e := range res.Errors {
		errs = append(errs, e)
	}
	return Row{Record: rec, Err: errors.Join(errs...)}, true
}

func (i *Importer) parseDate(raw string) string {
	// Spreadsheet serial dates.
	if n, err := strconv.ParseFloat(raw, 64); err == nil && n > 20000 && n < 80000 {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	if len(raw) > 10 {
		// "2025-06-10 00:00:00" and similar.
		if t, err := time.Parse(models.DateLayout, raw[:10]); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return parser.ParseDate(raw, i.now()).Date
}

var amountCleaner = strings.NewReplacer("€", "", " ", "", " ", "", " ", "")

func parseAmount(raw string) (decimal.Decimal, error) {
	s := amountCleaner.Replace(raw)
	if strings.Contains(s, ",") {
		// French decimals; dots are then thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
