package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVReader reads comma-delimited files with BOM stripping and UTF-8 validation
type CSVReader struct {
	delimiter  rune
	headers    []string
	headerMap  map[string]int
	currentRow int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// NewCSVReader wraps r and consumes the header row
func NewCSVReader(r io.Reader, delimiter rune) (*CSVReader, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	p := &CSVReader{
		delimiter: delimiter,
		bufReader: bufio.NewReader(r),
	}

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	content, err := p.bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		_, _ = p.bufReader.Discard(3)
	}

	if err := validateUTF8(p.bufReader); err != nil {
		return nil, err
	}

	p.reader = csv.NewReader(p.bufReader)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1

	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	// Peek may cut a multi-byte rune at the buffer edge
	if len(content) == checkSize {
		for i := 0; i < utf8.UTFMax && len(content) > 0 && !utf8.Valid(content); i++ {
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

func (p *CSVReader) parseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers, p.headerMap = headerIndex(record)
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names
func (p *CSVReader) Headers() []string {
	return p.headers
}

// ReadRow reads the next row; it returns io.EOF at the end of input
func (p *CSVReader) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	return rowFromFields(p.currentRow, p.headerMap, record), nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(trimSpaces(h))
}

// trimSpaces trims ASCII whitespace from both ends
func trimSpaces(s string) string {
	return strings.TrimFunc(s, isWhitespace)
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
