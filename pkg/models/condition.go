// Package models provides condition evaluation for approval workflow triggering.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Operator is a comparison operator applied between an entity field and a
// definition threshold.
type Operator string

const (
	OperatorGreaterThan        Operator = "greater_than"
	OperatorGreaterThanOrEqual Operator = "greater_than_or_equal"
	OperatorLessThan           Operator = "less_than"
	OperatorLessThanOrEqual    Operator = "less_than_or_equal"
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "not_equals"
)

// ErrUnknownOperator is returned when a condition carries an operator outside
// the supported set. Unknown operators are rejected, never skipped.
var ErrUnknownOperator = errors.New("unknown condition operator")

// ErrFieldNotFound is returned when the condition's field is absent from the
// entity snapshot being evaluated.
var ErrFieldNotFound = errors.New("condition field not found in entity snapshot")

// ParseOperator converts a string into an Operator.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case OperatorGreaterThan, OperatorGreaterThanOrEqual,
		OperatorLessThan, OperatorLessThanOrEqual,
		OperatorEquals, OperatorNotEquals:
		return Operator(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
}

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	_, err := ParseOperator(string(o))

	return err == nil
}

// Condition is the triggering predicate of a workflow definition: a numeric
// comparison between one entity field and a fixed threshold.
type Condition struct {
	Field     string   `json:"field"     validate:"required"`
	Operator  Operator `json:"operator"  validate:"required"`
	Threshold float64  `json:"threshold"`
}

// Evaluate resolves the condition field against the snapshot and applies the
// operator. A missing field or a non-numeric value is an error, not a
// non-match.
func (c Condition) Evaluate(snapshot EntitySnapshot) (bool, error) {
	raw, ok := snapshot[c.Field]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrFieldNotFound, c.Field)
	}

	value, err := toFloat(raw)
	if err != nil {
		return false, fmt.Errorf("field %q: %w", c.Field, err)
	}

	switch c.Operator {
	case OperatorGreaterThan:
		return value > c.Threshold, nil
	case OperatorGreaterThanOrEqual:
		return value >= c.Threshold, nil
	case OperatorLessThan:
		return value < c.Threshold, nil
	case OperatorLessThanOrEqual:
		return value <= c.Threshold, nil
	case OperatorEquals:
		return value == c.Threshold, nil
	case OperatorNotEquals:
		return value != c.Threshold, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
	}
}

// toFloat coerces the numeric types a JSON-decoded snapshot can carry.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("cannot compare %T as number", v)
	}
}
