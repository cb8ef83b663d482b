package tabular

// Row is one data row keyed by normalized header name
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// rowSource yields header names once and then data rows until io.EOF
type rowSource interface {
	Headers() []string
	ReadRow() (*Row, error)
}

// headerIndex builds a header lookup from normalized names. The first occurrence of a name wins.
func headerIndex(raw []string) ([]string, map[string]int) {
	headers := make([]string, len(raw))
	index := make(map[string]int, len(raw))
	for i, h := range raw {
		name := normalizeHeader(h)
		headers[i] = name
		if _, seen := index[name]; !seen && name != "" {
			index[name] = i
		}
	}
	return headers, index
}

// rowFromFields maps positional fields to header names; short rows are padded with empty values
func rowFromFields(line int, index map[string]int, fields []string) *Row {
	row := &Row{
		LineNumber: line,
		Data:       make(map[string]string, len(index)),
	}
	for name, i := range index {
		if i < len(fields) {
			row.Data[name] = trimSpaces(fields[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row
}
