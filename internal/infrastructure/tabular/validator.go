package tabular

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
)

// missingMarkers are cell values treated as absent
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"#n/a": {},
}

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column   string
	Type     FieldType
	Required bool
	MinValue *decimal.Decimal
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MinValue sets the inclusive lower bound of a decimal field
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies rules to rows and collects the reasons rows are dropped
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
}

// NewFieldValidator creates a validator. Rules are checked in the given order.
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow reports whether the row passes every rule and returns its decimal values.
// Missing values are checked for all columns before any coercion, so a row with a
// blank cell is reported as missing rather than as a type error.
func (v *FieldValidator) ValidateRow(row *Row) (map[string]decimal.Decimal, bool) {
	for _, rule := range v.rules {
		if rule.Required && IsMissing(row.Get(rule.Column)) {
			v.errors.AddRequiredError(row.LineNumber, rule.Column)
			return nil, false
		}
	}

	numbers := make(map[string]decimal.Decimal)
	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if rule.Type != TypeDecimal || IsMissing(value) {
			continue
		}

		d, err := decimal.NewFromString(value)
		if err != nil {
			v.errors.AddTypeError(row.LineNumber, rule.Column, string(TypeDecimal), value)
			return nil, false
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			v.errors.AddRangeError(row.LineNumber, rule.Column,
				fmt.Sprintf("value must be at least %s", rule.MinValue.String()), value)
			return nil, false
		}
		numbers[rule.Column] = d
	}

	return numbers, true
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// IsMissing reports whether a cell value counts as absent
func IsMissing(value string) bool {
	_, ok := missingMarkers[strings.ToLower(trimSpaces(value))]
	return ok
}
