package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	ErrCodeMissingColumns = "ERR_IMPORT_MISSING_COLUMNS"
	ErrCodeMalformedRow   = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField  = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType    = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidRange   = "ERR_IMPORT_INVALID_RANGE"
)

var (
	// ErrEmptyFile is returned when the file has no content at all
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidEncoding is returned when a CSV file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the file has no header row
	ErrMissingHeader = errors.New("file missing header row")

	// ErrUnsupportedFormat is returned for anything other than CSV or XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format, only .csv and .xlsx are accepted")

	// ErrNoSheets is returned when a workbook has no worksheets
	ErrNoSheets = errors.New("workbook contains no sheets")
)

// SchemaError reports required columns absent from the header. It is fatal.
type SchemaError struct {
	Missing []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Code returns the error code
func (e *SchemaError) Code() string {
	return ErrCodeMissingColumns
}

// RowError describes why a single row was dropped
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError records a missing required value
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column),
	})
}

// AddTypeError records a value that failed coercion
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeInvalidType,
		Message: fmt.Sprintf("expected %s", expectedType),
		Value:   value,
	})
}

// AddRangeError records a numeric value outside its allowed range
func (ec *ErrorCollection) AddRangeError(row int, column, message, value string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeInvalidRange,
		Message: message,
		Value:   value,
	})
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// Summary counts collected errors by code
func (ec *ErrorCollection) Summary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}

	return sb.String()
}
