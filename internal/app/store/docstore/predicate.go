// internal/app/store/docstore/predicate.go
package docstore

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Op is a comparison operator understood by every backend.
type Op int

const (
	// Eq matches documents whose field is present and equal to the value.
	Eq Op = iota
	// Ne matches documents whose field differs from the value, including
	// documents that do not have the field at all.
	Ne
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "=="
	case Ne:
		return "!="
	}
	return "?"
}

// Cond is one field comparison.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Predicate is a conjunction of conditions. The zero value matches everything.
type Predicate []Cond

// Where starts a predicate with a single condition.
func Where(field string, op Op, value any) Predicate {
	return Predicate{{Field: field, Op: op, Value: value}}
}

// And returns p extended with one more condition. p is not modified.
func (p Predicate) And(field string, op Op, value any) Predicate {
	out := make(Predicate, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Cond{Field: field, Op: op, Value: value})
}

// Match evaluates the predicate against a field map with the same semantics
// the Mongo backend gets from Filter.
func (p Predicate) Match(fields map[string]any) bool {
	for _, c := range p {
		v, ok := fields[c.Field]
		switch c.Op {
		case Eq:
			if !ok || !equalValues(v, c.Value) {
				return false
			}
		case Ne:
			if ok && equalValues(v, c.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Filter renders the predicate as a Mongo filter over the document's
// embedded fields map. Returns nil for the empty predicate.
func (p Predicate) Filter() bson.M {
	if len(p) == 0 {
		return nil
	}
	and := make(bson.A, 0, len(p))
	for _, c := range p {
		key := fieldsKey + "." + c.Field
		switch c.Op {
		case Eq:
			and = append(and, bson.M{key: bson.M{"$eq": c.Value}})
		case Ne:
			and = append(and, bson.M{key: bson.M{"$ne": c.Value}})
		}
	}
	return bson.M{"$and": and}
}

// equalValues compares scalars, treating all numeric kinds as comparable the
// way BSON does (an int32 1 equals a float64 1).
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
