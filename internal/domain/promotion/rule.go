package promotion

// Combinator joins the per-condition results of a rule.
type Combinator string

const (
	CombineAnd Combinator = "AND"
	CombineOr  Combinator = "OR"
)

// Rule is a flat boolean combination of conditions gating a promotion.
//
// SubRules is part of the stored schema but is not consulted during
// evaluation. Nested rule trees were never wired up in the product and
// recursing here would silently change the behaviour of existing definitions,
// so the field is carried for data compatibility only.
type Rule struct {
	Operator   Combinator
	Conditions []Condition
	SubRules   []Rule
}

// Evaluate combines the condition results under the rule's combinator.
// AND over an empty condition list is vacuously true, OR vacuously false.
// An unknown combinator evaluates to false.
func (r Rule) Evaluate(ctx *Context) bool {
	switch r.Operator {
	case CombineAnd:
		for _, c := range r.Conditions {
			if !c.Evaluate(ctx) {
				return false
			}
		}
		return true
	case CombineOr:
		for _, c := range r.Conditions {
			if c.Evaluate(ctx) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
