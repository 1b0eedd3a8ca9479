// Package condition implements alert conditions as a small tagged-variant
// expression tree evaluated against indicator snapshots.
//
// A condition is stored as JSON, for example:
//
//	{"kind":"compare","left":{"field":"close"},"op":">","right":{"value":10000}}
//	{"kind":"crosses_above","left":{"field":"close"},"right":{"field":"resistance"}}
//	{"kind":"ratio_above","left":{"field":"volume"},"right":{"field":"volume_avg"},"threshold":2}
//	{"kind":"and","children":[...]}
//
// New kinds only touch this package.
package condition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/indicator/domain/entity"
)

// Kind tags an expression node.
type Kind string

const (
	KindCompare      Kind = "compare"
	KindCrossesAbove Kind = "crosses_above"
	KindCrossesBelow Kind = "crosses_below"
	KindRatioAbove   Kind = "ratio_above"
	KindAnd          Kind = "and"
	KindOr           Kind = "or"
	KindNot          Kind = "not"
)

const maxDepth = 16

var compareOps = []string{">", ">=", "<", "<=", "==", "!="}

// Operand is either a snapshot field or a constant.
type Operand struct {
	Field string   `json:"field,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// Expr is one node of the condition tree.
type Expr struct {
	Kind      Kind     `json:"kind"`
	Op        string   `json:"op,omitempty"`
	Left      *Operand `json:"left,omitempty"`
	Right     *Operand `json:"right,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Children  []Expr   `json:"children,omitempty"`
}

// Parse decodes and validates a stored condition.
// Every failure wraps domain.ErrMalformedCondition.
func Parse(raw []byte) (Expr, error) {
	var e Expr
	if len(bytes.TrimSpace(raw)) == 0 {
		return e, fmt.Errorf("empty condition: %w", domain.ErrMalformedCondition)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return Expr{}, fmt.Errorf("decode condition: %v: %w", err, domain.ErrMalformedCondition)
	}
	if err := e.Validate(); err != nil {
		return Expr{}, err
	}
	return e, nil
}

// Validate checks the tree shape without evaluating it.
func (e Expr) Validate() error {
	return e.validate(0)
}

func (e Expr) validate(depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("condition nested deeper than %d: %w", maxDepth, domain.ErrMalformedCondition)
	}
	switch e.Kind {
	case KindCompare:
		if !slices.Contains(compareOps, e.Op) {
			return fmt.Errorf("unknown operator %q: %w", e.Op, domain.ErrMalformedCondition)
		}
		return validatePair(e)
	case KindCrossesAbove, KindCrossesBelow:
		return validatePair(e)
	case KindRatioAbove:
		if e.Threshold == nil {
			return fmt.Errorf("%s needs a threshold: %w", e.Kind, domain.ErrMalformedCondition)
		}
		return validatePair(e)
	case KindAnd, KindOr:
		if len(e.Children) == 0 {
			return fmt.Errorf("%s needs at least one child: %w", e.Kind, domain.ErrMalformedCondition)
		}
	case KindNot:
		if len(e.Children) != 1 {
			return fmt.Errorf("not needs exactly one child: %w", domain.ErrMalformedCondition)
		}
	default:
		return fmt.Errorf("unknown condition kind %q: %w", e.Kind, domain.ErrMalformedCondition)
	}
	for _, c := range e.Children {
		if err := c.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func validatePair(e Expr) error {
	if err := validateOperand(e.Left); err != nil {
		return fmt.Errorf("%s left: %w", e.Kind, err)
	}
	if err := validateOperand(e.Right); err != nil {
		return fmt.Errorf("%s right: %w", e.Kind, err)
	}
	return nil
}

func validateOperand(o *Operand) error {
	switch {
	case o == nil:
		return fmt.Errorf("missing operand: %w", domain.ErrMalformedCondition)
	case o.Field != "" && o.Value != nil:
		return fmt.Errorf("operand has both field and value: %w", domain.ErrMalformedCondition)
	case o.Field != "":
		if !slices.Contains(entity.Fields, o.Field) {
			return fmt.Errorf("unknown field %q: %w", o.Field, domain.ErrMalformedCondition)
		}
	case o.Value == nil:
		return fmt.Errorf("operand has neither field nor value: %w", domain.ErrMalformedCondition)
	}
	return nil
}

// Evaluate reports whether e holds for cur. prev is the snapshot the alert saw
// on the previous cycle; crossing kinds are false without it.
// Non-finite values and zero denominators make a node false rather than an error.
func Evaluate(e Expr, cur entity.Snapshot, prev *entity.Snapshot) (bool, error) {
	switch e.Kind {
	case KindCompare:
		l, r, err := pair(e, cur)
		if err != nil {
			return false, err
		}
		return compare(e.Op, l, r)
	case KindCrossesAbove, KindCrossesBelow:
		l, r, err := pair(e, cur)
		if err != nil {
			return false, err
		}
		if prev == nil {
			return false, nil
		}
		pl, pr, err := pair(e, *prev)
		if err != nil {
			return false, err
		}
		if !finite(l, r, pl, pr) {
			return false, nil
		}
		if e.Kind == KindCrossesAbove {
			return pl <= pr && l > r, nil
		}
		return pl >= pr && l < r, nil
	case KindRatioAbove:
		num, den, err := pair(e, cur)
		if err != nil {
			return false, err
		}
		if e.Threshold == nil {
			return false, fmt.Errorf("ratio_above without threshold: %w", domain.ErrMalformedCondition)
		}
		if den == 0 || !finite(num, den) {
			return false, nil
		}
		ratio := num / den
		return finite(ratio) && ratio > *e.Threshold, nil
	case KindAnd:
		for _, c := range e.Children {
			ok, err := Evaluate(c, cur, prev)
			if err != nil || !ok {
				return false, err
			}
		}
		return len(e.Children) > 0, nil
	case KindOr:
		for _, c := range e.Children {
			ok, err := Evaluate(c, cur, prev)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		if len(e.Children) != 1 {
			return false, fmt.Errorf("not needs exactly one child: %w", domain.ErrMalformedCondition)
		}
		ok, err := Evaluate(e.Children[0], cur, prev)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return false, fmt.Errorf("unknown condition kind %q: %w", e.Kind, domain.ErrMalformedCondition)
}

// UsesPrevious reports whether any node needs the previous snapshot.
func (e Expr) UsesPrevious() bool {
	if e.Kind == KindCrossesAbove || e.Kind == KindCrossesBelow {
		return true
	}
	for _, c := range e.Children {
		if c.UsesPrevious() {
			return true
		}
	}
	return false
}

func pair(e Expr, s entity.Snapshot) (float64, float64, error) {
	l, err := resolve(e.Left, s)
	if err != nil {
		return 0, 0, err
	}
	r, err := resolve(e.Right, s)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

func resolve(o *Operand, s entity.Snapshot) (float64, error) {
	if err := validateOperand(o); err != nil {
		return 0, err
	}
	if o.Value != nil {
		return *o.Value, nil
	}
	v, _ := s.Value(o.Field)
	return v, nil
}

func compare(op string, l, r float64) (bool, error) {
	if !finite(l, r) {
		return false, nil
	}
	switch op {
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	}
	return false, fmt.Errorf("unknown operator %q: %w", op, domain.ErrMalformedCondition)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
