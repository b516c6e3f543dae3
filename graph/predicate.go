// Copyright 2026, Square, Inc.

package graph

import (
	"fmt"
	"strings"
)

// Predicate operators.
const (
	EQ     = "eq"
	NEQ    = "neq"
	LT     = "lt"
	LTE    = "lte"
	GT     = "gt"
	GTE    = "gte"
	WITHIN = "within"
)

// P is a predicate over a single value. Numbers compare by value regardless of
// their Go type, so P{EQ, 1} matches both int(1) and float64(1).
type P struct {
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

func Eq(v interface{}) P  { return P{Op: EQ, Value: v} }
func Neq(v interface{}) P { return P{Op: NEQ, Value: v} }
func Lt(v interface{}) P  { return P{Op: LT, Value: v} }
func Lte(v interface{}) P { return P{Op: LTE, Value: v} }
func Gt(v interface{}) P  { return P{Op: GT, Value: v} }
func Gte(v interface{}) P { return P{Op: GTE, Value: v} }

func Within(vs ...interface{}) P { return P{Op: WITHIN, Value: vs} }

// Test returns true if v satisfies the predicate.
func (p P) Test(v interface{}) bool {
	switch p.Op {
	case EQ:
		return Equal(v, p.Value)
	case NEQ:
		return !Equal(v, p.Value)
	case WITHIN:
		vs, _ := p.Value.([]interface{})
		for _, w := range vs {
			if Equal(v, w) {
				return true
			}
		}
		return false
	}
	c, ok := Compare(v, p.Value)
	if !ok {
		return false
	}
	switch p.Op {
	case LT:
		return c < 0
	case LTE:
		return c <= 0
	case GT:
		return c > 0
	case GTE:
		return c >= 0
	}
	return false
}

// IsEquality is true for eq and within, the only predicates answered by an index.
func (p P) IsEquality() bool {
	return p.Op == EQ || p.Op == WITHIN
}

func (p P) String() string {
	return fmt.Sprintf("%s(%v)", p.Op, p.Value)
}

// HasContainer tests one key of an element against a predicate.
type HasContainer struct {
	Key  string `json:"key"`
	Pred P      `json:"predicate"`
}

// Test returns true if e has a value for Key that satisfies Pred. The T_ID and
// T_LABEL keys test the element id and label.
func (h HasContainer) Test(e Element) bool {
	switch h.Key {
	case T_ID:
		return h.Pred.Test(e.ID())
	case T_LABEL:
		return h.Pred.Test(e.Label())
	}
	for _, v := range e.Values(h.Key) {
		if h.Pred.Test(v) {
			return true
		}
	}
	return false
}

func (h HasContainer) String() string {
	return h.Key + "." + h.Pred.String()
}

// TestAll returns true if e satisfies every container.
func TestAll(e Element, hs []HasContainer) bool {
	for _, h := range hs {
		if !h.Test(e) {
			return false
		}
	}
	return true
}

// HasContainersString formats containers the way steps print them.
func HasContainersString(hs []HasContainer) string {
	s := make([]string, len(hs))
	for i, h := range hs {
		s[i] = h.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// Equal compares two property values, treating all numbers as float64.
func Equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Compare orders two values of the same family (numbers, strings, bools). The
// second return is false if the values cannot be compared.
func Compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// indexKey normalizes a value so that equal numbers share an index entry.
func indexKey(v interface{}) (interface{}, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	switch v.(type) {
	case string, bool:
		return v, true
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Number returns v as a float64 if v is a number.
func Number(v interface{}) (float64, bool) {
	return toFloat(v)
}
