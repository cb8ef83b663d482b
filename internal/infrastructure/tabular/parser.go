// Package tabular parses uploaded sales spreadsheets (CSV or XLSX) into validated records.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// Required column names
const (
	ColumnDate        = "date"
	ColumnProductName = "product_name"
	ColumnQuantity    = "quantity"
	ColumnPrice       = "price"
	ColumnRegion      = "region"
)

// RequiredColumns lists the columns every upload must carry, in reporting order
var RequiredColumns = []string{ColumnDate, ColumnProductName, ColumnQuantity, ColumnPrice, ColumnRegion}

// Format is the declared tabular format of an input
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from a filename extension
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Record is a validated row with coerced numeric fields
type Record struct {
	Line        int
	Date        string
	ProductName string
	Quantity    float64
	Price       float64
	Region      string
}

// Result is the outcome of parsing one file
type Result struct {
	Records []Record
	Dropped *ErrorCollection
	// TotalRows counts non-blank data rows, valid or not
	TotalRows int
}

// DroppedCount returns how many rows were discarded
func (r *Result) DroppedCount() int {
	return r.Dropped.TotalCount()
}

// ParseOption configures Parse
type ParseOption func(*parseConfig)

type parseConfig struct {
	delimiter rune
	sheet     string
	maxErrors int
}

// WithDelimiter sets the CSV field delimiter (default is comma)
func WithDelimiter(d rune) ParseOption {
	return func(c *parseConfig) {
		c.delimiter = d
	}
}

// WithSheet selects the worksheet of an XLSX file (default is the first sheet)
func WithSheet(name string) ParseOption {
	return func(c *parseConfig) {
		c.sheet = name
	}
}

// WithMaxErrors caps how many dropped-row details are kept
func WithMaxErrors(n int) ParseOption {
	return func(c *parseConfig) {
		c.maxErrors = n
	}
}

// salesRules are checked in this order for every row
func salesRules() []FieldRule {
	return []FieldRule{
		Field(ColumnDate).Required().Build(),
		Field(ColumnProductName).Required().Build(),
		Field(ColumnQuantity).Required().Decimal().MinValue(decimal.Zero).Build(),
		Field(ColumnPrice).Required().Decimal().Build(),
		Field(ColumnRegion).Required().Build(),
	}
}

// Parse reads every row of r. A missing required column fails with *SchemaError before any
// row is read. Rows with missing values or non-numeric quantity/price are dropped and
// reported in Result.Dropped. Zero valid rows is a valid, empty result.
func Parse(format Format, r io.Reader, opts ...ParseOption) (*Result, error) {
	cfg := parseConfig{delimiter: ',', maxErrors: 100}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		src rowSource
		err error
	)
	switch format {
	case FormatCSV:
		src, err = NewCSVReader(r, cfg.delimiter)
	case FormatXLSX:
		src, err = NewXLSXReader(r, cfg.sheet)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	if missing := missingColumns(src.Headers(), RequiredColumns); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	validator := NewFieldValidator(salesRules(), cfg.maxErrors)
	result := &Result{Records: make([]Record, 0), Dropped: validator.Errors()}

	for {
		row, err := src.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.TotalRows++
				result.Dropped.Add(RowError{Row: parseErr.StartLine, Code: ErrCodeMalformedRow, Message: parseErr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++

		numbers, ok := validator.ValidateRow(row)
		if !ok {
			continue
		}
		result.Records = append(result.Records, Record{
			Line:        row.LineNumber,
			Date:        row.Get(ColumnDate),
			ProductName: row.Get(ColumnProductName),
			Quantity:    numbers[ColumnQuantity].InexactFloat64(),
			Price:       numbers[ColumnPrice].InexactFloat64(),
			Region:      row.Get(ColumnRegion),
		})
	}

	return result, nil
}

func missingColumns(headers, required []string) []string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	var missing []string
	for _, col := range required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
