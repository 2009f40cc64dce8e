// Package workbook reads and writes language hour logs as xlsx workbooks.
//
// A sheet's first row is the header; the columns Date, Hours, Description and Modality
// are looked up by name (case-insensitive) and may appear in any order.
// Modality holds one or more modalities separated by commas.
package workbook

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/score"
)

const (
	ColDate        = "Date"
	ColHours       = "Hours"
	ColDescription = "Description"
	ColModality    = "Modality"

	DefaultSheet = "Hours"
)

var (
	ErrSheetNotFound = core.NewNotFoundError("sheet")
	ErrEmptySheet    = errors.New("sheet has no header row")
	ErrMissingColumn = errors.New("missing column")
	ErrBadDate       = errors.New("invalid date")
	ErrBadHours      = errors.New("invalid hours")
	ErrBadModality   = errors.New("invalid modality")
	ErrNoDescription = errors.New("description is required")

	importColumns = []string{ColDate, ColHours, ColDescription, ColModality}
	exportColumns = []string{ColDate, ColHours, ColModality, ColDescription}
)

// RowError reports a row that could not be converted to an entry. Row is 1-based, as shown by spreadsheet apps.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// ImportResult holds the rows read from a sheet.
type ImportResult struct {
	Entries []hours.Entry `json:"entries"`
	Errors  []RowError    `json:"errors"`
	Skipped int           `json:"skipped"` // blank rows
}

// Read parses the rows of sheet. An empty sheet name reads the first sheet.
// Row errors are collected in the result; a missing sheet or header column fails the whole read.
func Read(r io.Reader, sheet string) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, core.NewMalformedError("workbook", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return ImportResult{}, ErrSheetNotFound
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{}, core.NewMalformedError(sheet, err)
	}
	if len(rows) == 0 {
		return ImportResult{}, core.NewMalformedError(sheet, ErrEmptySheet)
	}

	cols, err := headerIndexes(rows[0])
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for i, row := range rows[1:] {
		if isBlank(row) {
			res.Skipped++
			continue
		}
		e, err := parseRow(row, cols)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 2, Err: err.Error()})
			continue
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

func headerIndexes(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(importColumns))
	for i, cell := range header {
		for _, name := range importColumns {
			if strings.EqualFold(strings.TrimSpace(cell), name) {
				cols[name] = i
			}
		}
	}
	for _, name := range importColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.NewMalformedError(name, ErrMissingColumn)
		}
	}
	return cols, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseRow(row []string, cols map[string]int) (hours.Entry, error) {
	date, err := parseDate(cell(row, cols[ColDate]))
	if err != nil {
		return hours.Entry{}, err
	}

	rawHours := cell(row, cols[ColHours])
	hrs, err := strconv.ParseFloat(rawHours, 64)
	if err != nil || hrs != math.Trunc(hrs) || hrs < 0 || hrs > float64(hours.MaxHoursPerEntry) {
		return hours.Entry{}, core.NewMalformedError(rawHours, ErrBadHours)
	}

	desc := core.CleanString(cell(row, cols[ColDescription]))
	if desc == "" {
		return hours.Entry{}, ErrNoDescription
	}

	var mods []string
	for _, raw := range strings.Split(cell(row, cols[ColModality]), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		mod := hours.NormalizeModality(raw)
		if mod == "" {
			return hours.Entry{}, core.NewMalformedError(strings.TrimSpace(raw), ErrBadModality)
		}
		if !core.StringInSlice(mod, mods) {
			mods = append(mods, mod)
		}
	}
	if len(mods) == 0 {
		return hours.Entry{}, hours.ErrNoModality
	}

	return hours.Entry{Date: date, Hours: int(hrs), Description: desc, Modalities: mods}, nil
}

// parseDate accepts Excel serial dates, MM/DD/YYYY and YYYY-MM-DD.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, core.NewMalformedError(raw, ErrBadDate)
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, core.NewMalformedError(raw, ErrBadDate)
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, ok, err := score.ParseDate(raw)
	if err != nil || !ok {
		return time.Time{}, core.NewMalformedError(raw, ErrBadDate)
	}
	return t, nil
}

// Write writes entries to a new workbook with a single DefaultSheet sheet.
func Write(w io.Writer, entries []hours.Entry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14}) // m/d/yyyy
	if err != nil {
		return errors.Wrap(err, "creating date style")
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col
	}
	if err = f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, e := range entries {
		rowNum := i + 2
		row := []interface{}{e.Date, e.Hours, strings.Join(e.Modalities, ", "), e.Description}
		if err = f.SetSheetRow(DefaultSheet, fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return errors.Wrapf(err, "writing row %d", rowNum)
		}
		if err = f.SetCellStyle(DefaultSheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), dateStyle); err != nil {
			return errors.Wrapf(err, "styling row %d", rowNum)
		}
	}
	if err = f.SetColWidth(DefaultSheet, "C", "D", 30); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}
