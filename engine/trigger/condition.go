package trigger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Checked in this order so that two-character operators win over their prefixes.
var expressionOperators = []string{"==", "!=", ">=", "<=", ">", "<"}

// Matches reports whether the trigger conditions hold for the event context.
// Structured fields are AND-ed. When customExpression is set and every structured
// field passed, the expression alone decides the outcome. Unknown keys are ignored.
func Matches(conditions Conditions, ctx EventContext) bool {
	if len(conditions) == 0 {
		return true
	}
	for _, pair := range [][2]string{
		{CondFromStatus, CtxOldStatus},
		{CondToStatus, CtxNewStatus},
		{CondPriority, CtxPriority},
		{CondCategory, CtxCategory},
	} {
		want, ok := conditions[pair[0]]
		if !ok || !truthy(want) {
			continue
		}
		if !strictEqual(ctx[pair[1]], want) {
			return false
		}
	}
	if raw, ok := conditions[CondEntityTypes]; ok && raw != nil {
		if !containsValue(raw, ctx[CtxEntityType]) {
			return false
		}
	}
	if truthy(conditions[CondOnlyWhenAssigned]) && !truthy(ctx[CtxNewAssigneeID]) {
		return false
	}
	if expr, ok := conditions[CondCustomExpression].(string); ok && expr != "" {
		return EvaluateExpression(expr, ctx)
	}
	return true
}

// EvaluateExpression evaluates "<left> <op> <right>". The left side goes through
// ResolvePath, the right side is a literal with surrounding quotes removed.
// Expressions without a recognized operator evaluate to false.
func EvaluateExpression(expr string, ctx EventContext) bool {
	for _, op := range expressionOperators {
		if !strings.Contains(expr, op) {
			continue
		}
		parts := strings.SplitN(expr, op, 3)
		left := strings.TrimSpace(parts[0])
		right := unquote(strings.TrimSpace(parts[1]))
		leftVal, defined := ResolvePath(left, ctx)
		switch op {
		case "==":
			return stringify(leftVal, defined) == right
		case "!=":
			return stringify(leftVal, defined) != right
		}
		l := toNumber(leftVal, defined)
		r := toNumber(right, true)
		if math.IsNaN(l) || math.IsNaN(r) {
			return false
		}
		switch op {
		case ">=":
			return l >= r
		case "<=":
			return l <= r
		case ">":
			return l > r
		default:
			return l < r
		}
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func strictEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	an, aok := numeric(a)
	bn, bok := numeric(b)
	return aok && bok && an == bn
}

func containsValue(list any, v any) bool {
	switch items := list.(type) {
	case []any:
		for _, item := range items {
			if strictEqual(v, item) {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if strictEqual(v, item) {
				return true
			}
		}
	}
	return false
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// stringify renders a value the way it appears in an expression literal.
func stringify(v any, defined bool) string {
	if !defined {
		return "undefined"
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if n, ok := numeric(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// toNumber coerces v to a float64, yielding NaN for anything non-numeric.
func toNumber(v any, defined bool) float64 {
	if !defined {
		return math.NaN()
	}
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if strings.ContainsAny(s, "_") {
			return math.NaN()
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if n, ok := numeric(v); ok {
		return n
	}
	return math.NaN()
}
