package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yurifrl/compta/pkg/models"
)

// Column layout of a month sheet. Row 1 holds headers, day N lives on row
// N+1 and the totals row sits below day 31.
var columns = []struct {
	header string
	field  models.Field
}{
	{"CB", models.CardActual},
	{"Espèces", models.CashActual},
	{"TR", models.MealVoucherActual},
	{"Dépenses", models.ExpenseActual},
	{"Total réel", models.TotalActual},
	{"Total déclaré", models.TotalDeclared},
	{"TR déclaré", models.MealVoucherDeclared},
	{"Dép. déclarée", models.ExpenseDeclared},
	{"Non déclaré", models.Undeclared},
}

const totalsRow = 33

// WorkbookStore keeps the ledger in a single .xlsx file with one sheet per
// month, created on first write.
type WorkbookStore struct {
	mu     sync.Mutex
	path   string
	file   *excelize.File
	logger *log.Logger
}

// OpenWorkbook opens path, or starts an empty workbook when the file does not
// exist yet. Nothing is written until the first WriteDay.
func OpenWorkbook(path string, logger *log.Logger) (*WorkbookStore, error) {
	var f *excelize.File
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, storeErr("open", "", fmt.Errorf("%s: %w", path, err))
		}
	}
	return &WorkbookStore{path: path, file: f, logger: logger}, nil
}

func (w *WorkbookStore) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *WorkbookStore) hasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func locate(date string) (models.Month, int, error) {
	month, err := models.MonthOfDate(date)
	if err != nil {
		return models.Month{}, 0, err
	}
	day, _ := strconv.Atoi(date[8:10])
	return month, day + 1, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (w *WorkbookStore) ReadDay(_ context.Context, date string) (*models.Record, error) {
	month, row, err := locate(date)
	if err != nil {
		return nil, storeErr("read", date, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasSheet(month.Label()) {
		return nil, nil
	}
	r, err := w.readRow(month.Label(), row)
	if err != nil {
		return nil, storeErr("read", date, err)
	}
	return r, nil
}

func (w *WorkbookStore) readRow(sheet string, row int) (*models.Record, error) {
	date, err := w.file.GetCellValue(sheet, cell(1, row), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if date == "" {
		return nil, nil
	}
	r := models.Record{Date: date}
	for i, c := range columns {
		raw, err := w.file.GetCellValue(sheet, cell(i+2, row), excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		v := decimal.Zero
		if raw != "" {
			if v, err = decimal.NewFromString(raw); err != nil {
				return nil, fmt.Errorf("%s!%s: %w", sheet, cell(i+2, row), err)
			}
		}
		switch c.field {
		case models.CardActual:
			r.CardActual = v
		case models.CashActual:
			r.CashActual = v
		case models.MealVoucherActual:
			r.MealVoucherActual = v
		case models.ExpenseActual:
			r.ExpenseActual = v
		case models.TotalDeclared:
			r.TotalDeclared = v
		case models.MealVoucherDeclared:
			r.MealVoucherDeclared = v
		case models.ExpenseDeclared:
			r.ExpenseDeclared = v
		}
	}
	rec := r.Recompute().Persisted()
	return &rec, nil
}

func (w *WorkbookStore) WriteDay(_ context.Context, date string, r models.Record) error {
	month, row, err := locate(date)
	if err != nil {
		return storeErr("write", date, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet := month.Label()
	created := false
	if !w.hasSheet(sheet) {
		if err := w.createSheet(sheet); err != nil {
			if w.hasSheet(sheet) {
				w.rollback(sheet, row, nil, true)
			}
			return storeErr("write", date, err)
		}
		created = true
	}
	before, err := w.readRow(sheet, row)
	if err != nil {
		return storeErr("write", date, err)
	}

	if err := w.writeRow(sheet, row, prepare(date, r)); err != nil {
		w.rollback(sheet, row, before, created)
		return storeErr("write", date, err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		w.rollback(sheet, row, before, created)
		return storeErr("write", date, err)
	}
	w.logger.Debug("day written", "sheet", sheet, "row", row)
	return nil
}

func (w *WorkbookStore) writeRow(sheet string, row int, r models.Record) error {
	values := []interface{}{r.Date}
	for _, c := range columns {
		values = append(values, r.Value(c.field).InexactFloat64())
	}
	return w.file.SetSheetRow(sheet, cell(1, row), &values)
}

func (w *WorkbookStore) clearRow(sheet string, row int) error {
	for col := 1; col <= len(columns)+1; col++ {
		if err := w.file.SetCellStr(sheet, cell(col, row), ""); err != nil {
			return err
		}
	}
	return nil
}

// rollback puts back a row changed in memory whose save failed, so reads and
// later saves only ever see what reached the disk.
func (w *WorkbookStore) rollback(sheet string, row int, before *models.Record, created bool) {
	var err error
	switch {
	case created:
		if len(w.file.GetSheetList()) == 1 {
			// excelize keeps at least one sheet.
			_, err = w.file.NewSheet("Sheet1")
		}
		if err == nil {
			err = w.file.DeleteSheet(sheet)
		}
	case before == nil:
		err = w.clearRow(sheet, row)
	default:
		err = w.writeRow(sheet, row, *before)
	}
	if err != nil {
		w.logger.Error("failed to roll back unsaved row", "sheet", sheet, "row", row, "error", err)
	}
}

func (w *WorkbookStore) createSheet(name string) error {
	if _, err := w.file.NewSheet(name); err != nil {
		return err
	}
	headers := []interface{}{"Date"}
	for _, c := range columns {
		headers = append(headers, c.header)
	}
	if err := w.file.SetSheetRow(name, "A1", &headers); err != nil {
		return err
	}
	if err := w.file.SetCellValue(name, cell(1, totalsRow), "TOTAL"); err != nil {
		return err
	}
	for i := range columns {
		col := cell(i+2, 2)[:1]
		formula := fmt.Sprintf("SUM(%s2:%s32)", col, col)
		if err := w.file.SetCellFormula(name, cell(i+2, totalsRow), formula); err != nil {
			return err
		}
	}
	bold, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = w.file.SetCellStyle(name, "A1", cell(len(columns)+1, 1), bold)
		_ = w.file.SetCellStyle(name, cell(1, totalsRow), cell(len(columns)+1, totalsRow), bold)
	}
	_ = w.file.SetColWidth(name, "A", "J", 14)

	// A fresh workbook starts with an unused default sheet.
	if w.hasSheet("Sheet1") && len(w.file.GetSheetList()) > 1 {
		_ = w.file.DeleteSheet("Sheet1")
	}
	w.logger.Info("month sheet created", "sheet", name)
	return nil
}

func (w *WorkbookStore) ReadMonth(_ context.Context, month models.Month) ([]models.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet := month.Label()
	if !w.hasSheet(sheet) {
		return nil, nil
	}
	var out []models.Record
	for day := 1; day <= month.Days(); day++ {
		r, err := w.readRow(sheet, day+1)
		if err != nil {
			return nil, storeErr("read month", month.String(), err)
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (w *WorkbookStore) DeleteDay(_ context.Context, date string) error {
	month, row, err := locate(date)
	if err != nil {
		return storeErr("delete", date, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet := month.Label()
	if !w.hasSheet(sheet) {
		return storeErr("delete", date, ErrNoEntry)
	}
	existing, err := w.readRow(sheet, row)
	if err != nil {
		return storeErr("delete", date, err)
	}
	if existing == nil {
		return storeErr("delete", date, ErrNoEntry)
	}
	if err := w.clearRow(sheet, row); err != nil {
		w.rollback(sheet, row, existing, false)
		return storeErr("delete", date, err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		w.rollback(sheet, row, existing, false)
		return storeErr("delete", date, err)
	}
	return nil
}
