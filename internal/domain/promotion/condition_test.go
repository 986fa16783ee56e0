package promotion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testContext() *Context {
	return &Context{
		Items: []Item{
			{SKU: "TRS-001", Category: "tires", Price: decimal.NewFromInt(180), Quantity: 5},
			{SKU: "OIL-010", Category: "lubricants", Price: decimal.NewFromInt(25), Quantity: 2},
		},
		Attrs: map[string]Value{
			"invoice_total":    IntValue(950),
			"customer_segment": StringValue("wholesale"),
			"payment_method":   StringValue("cash"),
			"quantity":         IntValue(7),
		},
	}
}

func TestConditionEvaluate(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			name: "product equals matching SKU",
			cond: Condition{Type: ConditionProduct, Operator: OpEqual, Values: []Value{StringValue("TRS-001")}},
			want: true,
		},
		{
			name: "product equals unknown SKU",
			cond: Condition{Type: ConditionProduct, Operator: OpEqual, Values: []Value{StringValue("NOPE-99")}},
			want: false,
		},
		{
			name: "segment equals",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpEqual, Values: []Value{StringValue("wholesale")}},
			want: true,
		},
		{
			name: "segment equals is strict about kind",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpEqual, Values: []Value{IntValue(1)}},
			want: false,
		},
		{
			name: "not equal on present field",
			cond: Condition{Type: ConditionPaymentMethod, Operator: OpNotEqual, Values: []Value{StringValue("card")}},
			want: true,
		},
		{
			name: "not equal on missing field is true",
			cond: Condition{Type: ConditionCustom, Operator: OpNotEqual, Values: []Value{StringValue("anything")}},
			want: true,
		},
		{
			name: "equal on missing field is false",
			cond: Condition{Type: ConditionCustom, Operator: OpEqual, Values: []Value{StringValue("anything")}},
			want: false,
		},
		{
			name: "quantity threshold sums matching SKU lines",
			cond: Condition{Type: ConditionQuantity, Operator: OpGreaterOrEqual, Values: []Value{StringValue("TRS-001")}},
			// "TRS-001" is not numeric, so the threshold comparison fails
			// even though the SKU matched 5 units.
			want: false,
		},
		{
			name: "numeric quantity operand matches no SKU",
			cond: Condition{Type: ConditionQuantity, Operator: OpGreaterOrEqual, Values: []Value{IntValue(4)}},
			want: false,
		},
		{
			name: "invoice total greater or equal",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpGreaterOrEqual, Values: []Value{IntValue(950)}},
			want: true,
		},
		{
			name: "invoice total greater strict",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpGreater, Values: []Value{IntValue(950)}},
			want: false,
		},
		{
			name: "invoice total less",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpLess, Values: []Value{IntValue(1000)}},
			want: true,
		},
		{
			name: "invoice total less or equal",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpLessOrEqual, Values: []Value{IntValue(950)}},
			want: true,
		},
		{
			name: "ordering against non-numeric operand fails",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpGreater, Values: []Value{StringValue("lots")}},
			want: false,
		},
		{
			name: "numeric string operand participates in ordering",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpGreaterOrEqual, Values: []Value{StringValue("900")}},
			want: true,
		},
		{
			name: "in membership hit",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpIn, Values: []Value{StringValue("retail"), StringValue("wholesale")}},
			want: true,
		},
		{
			name: "in membership miss",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpIn, Values: []Value{StringValue("retail"), StringValue("horeca")}},
			want: false,
		},
		{
			name: "in on missing field is false",
			cond: Condition{Type: ConditionCustom, Operator: OpIn, Values: []Value{StringValue("x")}},
			want: false,
		},
		{
			name: "not_in miss is true",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpNotIn, Values: []Value{StringValue("retail")}},
			want: true,
		},
		{
			name: "not_in hit is false",
			cond: Condition{Type: ConditionCustomerSegment, Operator: OpNotIn, Values: []Value{StringValue("wholesale")}},
			want: false,
		},
		{
			name: "not_in on missing field is false",
			cond: Condition{Type: ConditionCustom, Operator: OpNotIn, Values: []Value{StringValue("x")}},
			want: false,
		},
		{
			name: "unknown operator fails closed",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: Operator("~="), Values: []Value{IntValue(1)}},
			want: false,
		},
		{
			name: "empty operands fail closed",
			cond: Condition{Type: ConditionInvoiceTotal, Operator: OpEqual},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Evaluate(testContext()))
		})
	}
}

func TestConditionBetweenInclusiveBounds(t *testing.T) {
	cond := Condition{
		Type:     ConditionInvoiceTotal,
		Operator: OpBetween,
		Values:   []Value{IntValue(100), IntValue(500)},
	}

	tests := []struct {
		name  string
		total int64
		want  bool
	}{
		{"exactly lower bound", 100, true},
		{"exactly upper bound", 500, true},
		{"one below lower bound", 99, false},
		{"one above upper bound", 501, false},
		{"inside", 300, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{Attrs: map[string]Value{"invoice_total": IntValue(tt.total)}}
			assert.Equal(t, tt.want, cond.Evaluate(ctx))
		})
	}
}

func TestConditionBetweenMalformedOperands(t *testing.T) {
	ctx := &Context{Attrs: map[string]Value{"invoice_total": IntValue(300)}}

	single := Condition{Type: ConditionInvoiceTotal, Operator: OpBetween, Values: []Value{IntValue(100)}}
	assert.False(t, single.Evaluate(ctx))

	triple := Condition{Type: ConditionInvoiceTotal, Operator: OpBetween, Values: []Value{IntValue(100), IntValue(200), IntValue(300)}}
	assert.False(t, triple.Evaluate(ctx))

	nonNumeric := Condition{Type: ConditionInvoiceTotal, Operator: OpBetween, Values: []Value{StringValue("low"), IntValue(500)}}
	assert.False(t, nonNumeric.Evaluate(ctx))
}

func TestQuantityThresholdCoupling(t *testing.T) {
	// A numeric-string operand both selects lines by SKU and acts as the
	// numeric threshold. SKU "4" with quantity 5 against operand "4":
	// 5 >= 4 holds.
	ctx := &Context{Items: []Item{{SKU: "4", Price: decimal.NewFromInt(10), Quantity: 5}}}
	cond := Condition{Type: ConditionQuantity, Operator: OpGreaterOrEqual, Values: []Value{StringValue("4")}}
	assert.True(t, cond.Evaluate(ctx))

	// Quantity below the threshold.
	ctx.Items[0].Quantity = 3
	assert.False(t, cond.Evaluate(ctx))
}

func TestValueEquality(t *testing.T) {
	assert.True(t, StringValue("a").Equal(StringValue("a")))
	assert.False(t, StringValue("a").Equal(StringValue("b")))
	assert.True(t, IntValue(4).Equal(NumberValue(decimal.NewFromInt(4))))
	assert.False(t, StringValue("4").Equal(IntValue(4)), "string and number never compare equal")
	assert.False(t, Value{}.Equal(Value{}), "unset values are not equal to anything, including each other")
}
