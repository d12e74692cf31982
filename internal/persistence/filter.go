package persistence

import (
	"encoding/json"
	"reflect"
)

// Op is a comparison supported by Filter conditions.
type Op string

const (
	// OpEqual matches when the field equals the value.
	OpEqual Op = "=="
	// OpArrayContains matches when the field is an array holding the value.
	OpArrayContains Op = "array-contains"
)

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter struct {
	Conditions []Condition
}

// Where starts a filter with a single condition.
func Where(field string, op Op, value any) Filter {
	return Filter{}.And(field, op, value)
}

// And returns a copy of f with an additional condition.
func (f Filter) And(field string, op Op, value any) Filter {
	conditions := make([]Condition, len(f.Conditions), len(f.Conditions)+1)
	copy(conditions, f.Conditions)
	conditions = append(conditions, Condition{Field: field, Op: op, Value: normalizeValue(value)})
	return Filter{Conditions: conditions}
}

// Matches reports whether the document satisfies every condition.
func (f Filter) Matches(doc Document) bool {
	for _, cond := range f.Conditions {
		got, ok := doc.Lookup(cond.Field)
		if !ok {
			return false
		}
		want := normalizeValue(cond.Value)
		switch cond.Op {
		case OpEqual:
			if !reflect.DeepEqual(got, want) {
				return false
			}
		case OpArrayContains:
			items, isArray := got.([]any)
			if !isArray {
				return false
			}
			found := false
			for _, item := range items {
				if reflect.DeepEqual(item, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func normalizeValue(v any) any {
	switch v.(type) {
	case nil, string, bool, float64:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
