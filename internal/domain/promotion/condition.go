package promotion

import (
	"github.com/shopspring/decimal"
)

// ConditionType identifies which part of the checkout context a condition
// inspects.
type ConditionType string

const (
	ConditionProduct         ConditionType = "product"
	ConditionCategory        ConditionType = "category"
	ConditionInvoiceTotal    ConditionType = "invoice_total"
	ConditionCustomerSegment ConditionType = "customer_segment"
	ConditionQuantity        ConditionType = "quantity"
	ConditionPaymentMethod   ConditionType = "payment_method"
	ConditionTime            ConditionType = "time"
	ConditionCustom          ConditionType = "custom"
)

// Operator is the comparison applied by a condition.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpBetween        Operator = "between"
)

type valueKind uint8

const (
	kindUnset valueKind = iota
	kindString
	kindNumber
)

// Value is a loosely typed scalar used both in condition definitions and in
// context attributes. It carries either a string or a decimal number.
// Equality between a string and a number is always false, mirroring the
// strict comparison the rule schema was designed around. Ordering operators
// resolve both sides to numbers; a string that parses as a number participates
// in ordering, anything else fails the comparison.
type Value struct {
	str  string
	num  decimal.Decimal
	kind valueKind
}

// StringValue returns a string-typed Value.
func StringValue(s string) Value {
	return Value{str: s, kind: kindString}
}

// NumberValue returns a number-typed Value.
func NumberValue(d decimal.Decimal) Value {
	return Value{num: d, kind: kindNumber}
}

// IntValue returns a number-typed Value from an integer.
func IntValue(n int64) Value {
	return NumberValue(decimal.NewFromInt(n))
}

// IsSet reports whether the value is present. Context lookups for attributes
// that were never supplied return an unset Value.
func (v Value) IsSet() bool {
	return v.kind != kindUnset
}

// Equal reports strict equality: kinds must match, then the underlying
// string or number must be equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindString:
		return v.str == o.str
	case kindNumber:
		return v.num.Equal(o.num)
	default:
		return false
	}
}

// Number resolves the value to a decimal for ordering comparisons.
// Number values resolve directly; string values resolve when they parse as a
// decimal. Unset values and non-numeric strings report false.
func (v Value) Number() (decimal.Decimal, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindString:
		d, err := decimal.NewFromString(v.str)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Text returns the string form of the value, or "" for unset and number kinds.
func (v Value) Text() string {
	if v.kind == kindString {
		return v.str
	}
	return ""
}

// Item is a single cart line as seen by the promotion engine.
type Item struct {
	SKU      string
	Category string
	Price    decimal.Decimal
	Quantity int
}

// Context is the caller-supplied snapshot of the cart, customer and payment
// state a promotion is evaluated against. Attrs holds the scalar fields
// conditions read, keyed by condition type (e.g. "invoice_total",
// "customer_segment"); tiered discounts additionally read "quantity" and
// "price".
type Context struct {
	Items     []Item
	PromoCode string
	Attrs     map[string]Value
}

// Attr returns the named context attribute, or an unset Value when the
// attribute was not supplied.
func (c *Context) Attr(name string) Value {
	if c == nil || c.Attrs == nil {
		return Value{}
	}
	return c.Attrs[name]
}

// Condition is a single typed comparison against the context.
//
// Values holds the comparison operand(s): one scalar for the simple
// operators, the membership set for in/not_in, and the inclusive [low, high]
// pair for between.
type Condition struct {
	Type     ConditionType
	Operator Operator
	Values   []Value

	// AdditionalData is an opaque JSON blob some stored definitions attach.
	// The evaluator never reads it; it is carried so definitions round-trip.
	AdditionalData []byte
}

// Evaluate reports whether the context satisfies the condition. It never
// fails loudly: unknown operators, wrong operand arity and missing context
// attributes all evaluate to false. The single exception is "!=" against a
// missing attribute, which is true, since an absent field differs from any
// operand.
func (c Condition) Evaluate(ctx *Context) bool {
	switch c.Operator {
	case OpEqual:
		if len(c.Values) == 0 {
			return false
		}
		if c.Type == ConditionProduct {
			return anyItemSKU(ctx, c.Values[0])
		}
		return ctx.Attr(string(c.Type)).Equal(c.Values[0])

	case OpNotEqual:
		if len(c.Values) == 0 {
			return false
		}
		return !ctx.Attr(string(c.Type)).Equal(c.Values[0])

	case OpGreaterOrEqual:
		if len(c.Values) == 0 {
			return false
		}
		if c.Type == ConditionQuantity {
			return matchedQuantityAtLeast(ctx, c.Values[0])
		}
		return compareAttr(ctx, c, func(cmp int) bool { return cmp >= 0 })

	case OpGreater:
		return compareAttr(ctx, c, func(cmp int) bool { return cmp > 0 })

	case OpLess:
		return compareAttr(ctx, c, func(cmp int) bool { return cmp < 0 })

	case OpLessOrEqual:
		return compareAttr(ctx, c, func(cmp int) bool { return cmp <= 0 })

	case OpIn:
		attr := ctx.Attr(string(c.Type))
		for _, v := range c.Values {
			if attr.Equal(v) {
				return true
			}
		}
		return false

	case OpNotIn:
		attr := ctx.Attr(string(c.Type))
		if !attr.IsSet() {
			return false
		}
		for _, v := range c.Values {
			if attr.Equal(v) {
				return false
			}
		}
		return true

	case OpBetween:
		if len(c.Values) != 2 {
			return false
		}
		attr, ok := ctx.Attr(string(c.Type)).Number()
		if !ok {
			return false
		}
		low, ok := c.Values[0].Number()
		if !ok {
			return false
		}
		high, ok := c.Values[1].Number()
		if !ok {
			return false
		}
		return attr.GreaterThanOrEqual(low) && attr.LessThanOrEqual(high)

	default:
		return false
	}
}

// anyItemSKU reports whether any cart item's SKU equals the operand.
func anyItemSKU(ctx *Context, want Value) bool {
	if ctx == nil {
		return false
	}
	for _, it := range ctx.Items {
		if StringValue(it.SKU).Equal(want) {
			return true
		}
	}
	return false
}

// matchedQuantityAtLeast sums the quantity of cart items whose SKU equals the
// operand and compares the sum against the operand's numeric form. The same
// operand deliberately serves both as the SKU selector and as the threshold;
// the rule schema has always conflated the two roles and stored definitions
// depend on it.
func matchedQuantityAtLeast(ctx *Context, operand Value) bool {
	if ctx == nil {
		return false
	}
	total := 0
	for _, it := range ctx.Items {
		if StringValue(it.SKU).Equal(operand) {
			total += it.Quantity
		}
	}
	threshold, ok := operand.Number()
	if !ok {
		return false
	}
	return decimal.NewFromInt(int64(total)).GreaterThanOrEqual(threshold)
}

// compareAttr resolves the context attribute and the first operand to numbers
// and applies the ordering predicate to their comparison result.
func compareAttr(ctx *Context, c Condition, pred func(cmp int) bool) bool {
	if len(c.Values) == 0 {
		return false
	}
	attr, ok := ctx.Attr(string(c.Type)).Number()
	if !ok {
		return false
	}
	operand, ok := c.Values[0].Number()
	if !ok {
		return false
	}
	return pred(attr.Cmp(operand))
}
