package csvimport

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column value
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
)

// FieldRule constrains one column
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MaxLength int
	MinValue  *decimal.Decimal
	MaxValue  *decimal.Decimal
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int requires a base-10 integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// MaxLength caps the value length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Range bounds a numeric value; either bound may be nil
func (b *FieldRuleBuilder) Range(min, max *decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = min
	b.rule.MaxValue = max
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator checks rows against a fixed rule set and records failures
// in an ErrorCollection
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
}

// NewFieldValidator creates a validator. Rules are applied in the given order.
func NewFieldValidator(rules []FieldRule, errors *ErrorCollection) *FieldValidator {
	return &FieldValidator{rules: rules, errors: errors}
}

// ValidateRow validates all fields in a row and reports whether it passed
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				v.errors.AddRequiredError(row.LineNumber, rule.Column)
				ok = false
			}
			continue
		}

		if rule.Type == TypeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				v.errors.AddTypeError(row.LineNumber, rule.Column, "integer", value)
				ok = false
				continue
			}
			if msg := checkRange(value, rule.MinValue, rule.MaxValue); msg != "" {
				v.errors.Add(RowError{
					Row:     row.LineNumber,
					Column:  rule.Column,
					Code:    ErrCodeImportInvalidRange,
					Message: msg,
					Value:   value,
				})
				ok = false
				continue
			}
		}

		if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
			v.errors.Add(RowError{
				Row:     row.LineNumber,
				Column:  rule.Column,
				Code:    ErrCodeImportInvalidLength,
				Message: fmt.Sprintf("length must be at most %d", rule.MaxLength),
			})
			ok = false
		}
	}
	return ok
}

func checkRange(value string, min, max *decimal.Decimal) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "not a number"
	}
	if min != nil && d.LessThan(*min) {
		return fmt.Sprintf("value must be at least %s", min.String())
	}
	if max != nil && d.GreaterThan(*max) {
		return fmt.Sprintf("value must be at most %s", max.String())
	}
	return ""
}
