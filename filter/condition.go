package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Operator represents a comparison operator.
type Operator string

const (
	// OpEqual represents the equality operator.
	OpEqual Operator = "eq"
	// OpNotEqual represents the inequality operator.
	OpNotEqual Operator = "ne"
	// OpGreaterThan represents the greater than operator.
	OpGreaterThan Operator = "gt"
	// OpGreaterEqual represents the greater than or equal operator.
	OpGreaterEqual Operator = "gte"
	// OpLessThan represents the less than operator.
	OpLessThan Operator = "lt"
	// OpLessEqual represents the less than or equal operator.
	OpLessEqual Operator = "lte"
	// OpIn represents the in list operator.
	OpIn Operator = "in"
)

var symbols = map[Operator]string{
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpGreaterThan:  ">",
	OpGreaterEqual: ">=",
	OpLessThan:     "<",
	OpLessEqual:    "<=",
	OpIn:           "in",
}

// ErrInvalidCondition is returned for malformed conditions.
var ErrInvalidCondition = errors.New("invalid condition")

// Condition is a predicate over the decoded flag values of a pixel.
type Condition interface {
	// Flags returns the referenced flag names, first appearance first.
	Flags() []string
	String() string
}

// Filter compares one flag with a value, or with a set of values for OpIn.
type Filter struct {
	Flag     string
	Operator Operator
	Value    uint64
	Values   []uint64
}

// Flags implements Condition.
func (f *Filter) Flags() []string { return []string{f.Flag} }

func (f *Filter) String() string {
	if f.Operator == OpIn {
		vals := make([]string, len(f.Values))
		for i, v := range f.Values {
			vals[i] = strconv.FormatUint(v, 10)
		}
		return fmt.Sprintf("%s in [%s]", f.Flag, strings.Join(vals, " "))
	}
	return fmt.Sprintf("%s %s %d", f.Flag, symbols[f.Operator], f.Value)
}

func (f *Filter) validate() error {
	if f.Flag == "" {
		return fmt.Errorf("%w: empty flag name", ErrInvalidCondition)
	}
	if _, ok := symbols[f.Operator]; !ok {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, f.Operator)
	}
	return nil
}

func (f *Filter) match(v uint64) bool {
	switch f.Operator {
	case OpEqual:
		return v == f.Value
	case OpNotEqual:
		return v != f.Value
	case OpGreaterThan:
		return v > f.Value
	case OpGreaterEqual:
		return v >= f.Value
	case OpLessThan:
		return v < f.Value
	case OpLessEqual:
		return v <= f.Value
	case OpIn:
		return slices.Contains(f.Values, v)
	}
	return false
}

// Eq matches pixels whose flag equals v.
func Eq(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpEqual, Value: v} }

// Ne matches pixels whose flag differs from v.
func Ne(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpNotEqual, Value: v} }

// Gt matches pixels whose flag is greater than v.
func Gt(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpGreaterThan, Value: v} }

// Ge matches pixels whose flag is at least v.
func Ge(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpGreaterEqual, Value: v} }

// Lt matches pixels whose flag is less than v.
func Lt(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpLessThan, Value: v} }

// Le matches pixels whose flag is at most v.
func Le(flag string, v uint64) *Filter { return &Filter{Flag: flag, Operator: OpLessEqual, Value: v} }

// In matches pixels whose flag is one of vs.
func In(flag string, vs ...uint64) *Filter {
	return &Filter{Flag: flag, Operator: OpIn, Values: slices.Clone(vs)}
}

type andCond struct{ conds []Condition }

type orCond struct{ conds []Condition }

type notCond struct{ cond Condition }

// And matches pixels matching every condition. And() matches all pixels.
func And(conds ...Condition) Condition { return &andCond{conds: conds} }

// Or matches pixels matching any condition. Or() matches no pixel.
func Or(conds ...Condition) Condition { return &orCond{conds: conds} }

// Not matches pixels not matching cond.
func Not(cond Condition) Condition { return &notCond{cond: cond} }

func (c *andCond) Flags() []string { return collectFlags(c.conds) }
func (c *orCond) Flags() []string  { return collectFlags(c.conds) }
func (c *notCond) Flags() []string { return c.cond.Flags() }

func (c *andCond) String() string { return join(c.conds, " and ") }
func (c *orCond) String() string  { return join(c.conds, " or ") }
func (c *notCond) String() string { return "not " + c.cond.String() }

func collectFlags(conds []Condition) []string {
	var out []string
	for _, c := range conds {
		for _, f := range c.Flags() {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}

func join(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Parse reads a comma-separated conjunction of comparisons such as
// "cloud==0,cloud_confidence<2,land_water=1|2". A value list joined by '|'
// is an OpIn test. A single '=' is accepted for equality.
func Parse(s string) (Condition, error) {
	var conds []Condition
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		f, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		conds = append(conds, f)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCondition)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return And(conds...), nil
}

// Longer symbols first so that "<=" is not read as "<".
var parseOps = []struct {
	sym string
	op  Operator
}{
	{"==", OpEqual},
	{"!=", OpNotEqual},
	{">=", OpGreaterEqual},
	{"<=", OpLessEqual},
	{">", OpGreaterThan},
	{"<", OpLessThan},
	{"=", OpEqual},
}

func parseTerm(term string) (*Filter, error) {
	for _, p := range parseOps {
		i := strings.Index(term, p.sym)
		if i <= 0 {
			continue
		}
		flag := strings.TrimSpace(term[:i])
		rhs := strings.TrimSpace(term[i+len(p.sym):])

		if strings.Contains(rhs, "|") {
			if p.op != OpEqual {
				return nil, fmt.Errorf("%w: value list needs '=' in %q", ErrInvalidCondition, term)
			}
			var vals []uint64
			for _, part := range strings.Split(rhs, "|") {
				v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCondition, term, err)
				}
				vals = append(vals, v)
			}
			return In(flag, vals...), nil
		}

		v, err := strconv.ParseUint(rhs, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCondition, term, err)
		}
		return &Filter{Flag: flag, Operator: p.op, Value: v}, nil
	}
	return nil, fmt.Errorf("%w: no operator in %q", ErrInvalidCondition, term)
}
