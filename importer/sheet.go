package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyWorkbook = errors.New("workbook has no rows")

type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// RowError points at a spreadsheet row. Row counts the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// sheet is the first worksheet of an uploaded workbook with its header indexed.
type sheet struct {
	cols map[string]int
	rows [][]string
}

// headerKey folds "Room Number", "room_number" and "roomNumber" together.
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

func readSheet(r io.Reader, required []string) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	s := &sheet{cols: map[string]int{}, rows: rows}
	for i, h := range rows[0] {
		if k := headerKey(h); k != "" {
			if _, dup := s.cols[k]; !dup {
				s.cols[k] = i
			}
		}
	}

	var missing []string
	for _, col := range required {
		if !s.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return s, nil
}

func (s *sheet) has(col string) bool {
	_, ok := s.cols[headerKey(col)]
	return ok
}

// each calls fn for every non-blank data row with its 1-based row number.
func (s *sheet) each(fn func(rowNum int, get func(col string) string)) {
	for i := 1; i < len(s.rows); i++ {
		row := s.rows[i]
		if blank(row) {
			continue
		}
		get := func(col string) string {
			idx, ok := s.cols[headerKey(col)]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		fn(i+1, get)
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseInt accepts "3" and spreadsheet floats like "3.0". Empty yields nil.
func parseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("%q is not a whole number", s)
	}
	n := int(f)
	return &n, nil
}
