// internal/database/query.go
package database

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Fielder exposes record fields by their persisted (JSON) name.
type Fielder interface {
	Field(name string) (any, bool)
}

// Op is a filter comparison operator.
type Op int

const (
	// OpEq matches when the field equals the value.
	OpEq Op = iota
	// OpNot matches when the field does not equal the value.
	OpNot
	// OpMatch matches when the field is structurally identical to the value.
	OpMatch
)

// Cond is a single filter clause.
type Cond struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Cond    { return Cond{Field: field, Op: OpEq, Value: value} }
func Not(field string, value any) Cond   { return Cond{Field: field, Op: OpNot, Value: value} }
func Match(field string, value any) Cond { return Cond{Field: field, Op: OpMatch, Value: value} }

// Where is a conjunction of clauses. An empty Where matches every record.
type Where []Cond

// ByID is shorthand for the common single-record filter.
func ByID(id string) Where { return Where{Eq("id", id)} }

// Matches reports whether r satisfies every clause.
func (w Where) Matches(r Fielder) bool {
	for _, c := range w {
		v, _ := r.Field(c.Field)
		switch c.Op {
		case OpNot:
			if equalValues(v, c.Value) {
				return false
			}
		case OpMatch:
			if !jsonEqual(v, c.Value) {
				return false
			}
		default:
			if !equalValues(v, c.Value) {
				return false
			}
		}
	}
	return true
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Order is a single ordering clause.
type Order struct {
	Field string
	Dir   Direction
}

func Asc(field string) Order  { return Order{Field: field, Dir: Ascending} }
func Desc(field string) Order { return Order{Field: field, Dir: Descending} }

// Query selects and orders records of one collection.
type Query struct {
	Where   Where
	OrderBy []Order
}

// Select maps field names to inclusion; fields absent or false are dropped.
type Select map[string]bool

// Record is a projected record.
type Record map[string]any

// Project returns a record per row holding only the selected fields. Unknown
// fields and nil values (unset optionals) get no key at all, which encodes
// to JSON the same as a key holding undefined.
func Project[R Fielder](rows []R, sel Select) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(sel))
		for name, on := range sel {
			if !on {
				continue
			}
			if v, ok := row.Field(name); ok && v != nil {
				rec[name] = v
			}
		}
		out = append(out, rec)
	}
	return out
}

// sortRows applies the clauses as successive stable sorts, last-declared key
// first, so the first-declared key ends up dominant.
func sortRows[T any, P entity[T]](rows []T, orders []Order) {
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		sort.SliceStable(rows, func(a, b int) bool {
			va, _ := P(&rows[a]).Field(o.Field)
			vb, _ := P(&rows[b]).Field(o.Field)
			c := compareValues(va, vb)
			if o.Dir == Descending {
				return c > 0
			}
			return c < 0
		})
	}
}

func filterRows[T any, P entity[T]](rows []T, where Where) []T {
	out := make([]T, 0, len(rows))
	for i := range rows {
		if where.Matches(P(&rows[i])) {
			out = append(out, rows[i])
		}
	}
	return out
}

func indexOf[T any, P entity[T]](rows []T, where Where) int {
	for i := range rows {
		if where.Matches(P(&rows[i])) {
			return i
		}
	}
	return -1
}

// normalize dereferences pointers and widens numbers to float64.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return rv.Interface()
}

func equalValues(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.TypeOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(normalize(a))
	jb, errB := json.Marshal(normalize(b))
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// compareValues orders nil before any value; values of unrelated types
// compare equal.
func compareValues(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return 0
}
