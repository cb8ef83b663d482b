package tabular

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the rows of one worksheet
type XLSXReader struct {
	headers   []string
	headerMap map[string]int
	rows      [][]string
	next      int
	dateCol   int
	date1904  bool
}

// NewXLSXReader loads the workbook from r and consumes the header row of sheet.
// An empty sheet name selects the first sheet.
func NewXLSXReader(r io.Reader, sheet string) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheets
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	x := &XLSXReader{rows: rows, next: 1, dateCol: -1}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		x.date1904 = *props.Date1904
	}

	x.headers, x.headerMap = headerIndex(rows[0])
	if len(x.headerMap) == 0 {
		return nil, ErrMissingHeader
	}
	if i, ok := x.headerMap[ColumnDate]; ok {
		x.dateCol = i
	}
	return x, nil
}

// Headers returns the normalized header names
func (x *XLSXReader) Headers() []string {
	return x.headers
}

// ReadRow returns the next data row; it returns io.EOF after the last row
func (x *XLSXReader) ReadRow() (*Row, error) {
	if x.next >= len(x.rows) {
		return nil, io.EOF
	}
	fields := x.rows[x.next]
	x.next++

	if x.dateCol >= 0 && x.dateCol < len(fields) {
		fields[x.dateCol] = x.serialToDate(fields[x.dateCol])
	}
	// line numbers are 1-based with the header on line 1
	return rowFromFields(x.next, x.headerMap, fields), nil
}

// serialToDate converts an Excel serial day number to YYYY-MM-DD and leaves text cells alone
func (x *XLSXReader) serialToDate(value string) string {
	serial, err := strconv.ParseFloat(trimSpaces(value), 64)
	if err != nil {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, x.date1904)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}
