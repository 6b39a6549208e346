package sql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nickyhof/FlatDB/core"
)

type WhereOperator string

const (
	EqualsOperator      WhereOperator = "="
	GreaterThanOperator WhereOperator = ">"
	LessThanOperator    WhereOperator = "<"
)

// Predicate is the single WHERE condition of a statement. The zero value
// is an absent condition and matches every row. A condition that failed
// to parse keeps its error and matches nothing.
type Predicate struct {
	Column   string
	Operator WhereOperator
	Literal  string
	Present  bool
	Err      error
}

// ParsePredicate parses "<column> <operator> <literal>". The condition is
// split on whitespace; the third field is the literal, with surrounding
// single quotes stripped, and any further fields are ignored.
func ParsePredicate(text string) Predicate {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	predicate := Predicate{Present: true}

	fields := strings.Fields(text)
	if len(fields) < 3 {
		predicate.Err = fmt.Errorf("%w: where clause %q needs <column> <operator> <value>", core.ErrMalformedStatement, text)
		return predicate
	}
	column, operator, literal := fields[0], fields[1], fields[2]

	predicate.Column = column
	predicate.Operator = WhereOperator(operator)
	predicate.Literal = unquote(literal)

	switch predicate.Operator {
	case EqualsOperator, GreaterThanOperator, LessThanOperator:
	default:
		predicate.Err = fmt.Errorf("%w: %q", core.ErrUnsupportedOperator, operator)
	}
	return predicate
}

// Matches reports whether the row satisfies the condition. Any error means
// the row does not match; callers log it and move on.
func (predicate Predicate) Matches(fields []string, header []string) (bool, error) {
	if !predicate.Present {
		return true, nil
	}
	if predicate.Err != nil {
		return false, predicate.Err
	}

	index := slices.Index(header, predicate.Column)
	if index < 0 {
		return false, fmt.Errorf("%w: %s", core.ErrUnknownColumn, predicate.Column)
	}

	value := ""
	if index < len(fields) {
		value = fields[index]
	}

	left, leftErr := strconv.ParseFloat(strings.TrimSpace(value), 64)
	right, rightErr := strconv.ParseFloat(predicate.Literal, 64)
	if leftErr == nil && rightErr == nil {
		switch predicate.Operator {
		case EqualsOperator:
			return left == right, nil
		case GreaterThanOperator:
			return left > right, nil
		default:
			return left < right, nil
		}
	}

	if predicate.Operator == EqualsOperator {
		return value == predicate.Literal, nil
	}
	return false, fmt.Errorf("%w: %q %s %q", core.ErrTypeMismatch, value, predicate.Operator, predicate.Literal)
}

func (predicate Predicate) String() string {
	if !predicate.Present {
		return ""
	}
	return fmt.Sprintf("%s %s '%s'", predicate.Column, predicate.Operator, predicate.Literal)
}
