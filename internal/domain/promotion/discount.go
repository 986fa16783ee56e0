package promotion

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// buyXGetYDiscount computes the buy-X-get-Y-free discount.
//
// Eligible items are selected by SKU, falling back to category, falling back
// to every item. The discount prices all free units at the first eligible
// item's unit price rather than per line; the strategy has always worked on
// that simplification and definitions are priced around it.
func buyXGetYDiscount(cfg *BuyXGetYConfig, items []Item) decimal.Decimal {
	matched := eligibleItems(cfg, items)
	if len(matched) == 0 {
		return decimal.Zero
	}
	if cfg.BuyQuantity <= 0 {
		return decimal.Zero
	}

	total := 0
	for _, it := range matched {
		total += it.Quantity
	}

	sets := total / cfg.BuyQuantity
	if sets == 0 {
		return decimal.Zero
	}

	free := decimal.NewFromInt(int64(cfg.GetFreeQuantity * sets))
	return floorAtZero(matched[0].Price.Mul(free)).Round(2)
}

// eligibleItems filters cart items per the configuration. EligibleProducts
// takes precedence over EligibleCategories; with neither set, all items
// qualify.
func eligibleItems(cfg *BuyXGetYConfig, items []Item) []Item {
	if len(cfg.EligibleProducts) > 0 {
		return filterItems(items, func(it Item) bool {
			return containsString(cfg.EligibleProducts, it.SKU)
		})
	}
	if len(cfg.EligibleCategories) > 0 {
		return filterItems(items, func(it Item) bool {
			return containsString(cfg.EligibleCategories, it.Category)
		})
	}
	return items
}

// tieredDiscount computes the quantity-tiered discount. It reads the scalar
// "quantity" and "price" context attributes, not the cart items: the base
// amount is price * quantity, and the qualifying tier is the one with the
// highest MinQuantity not exceeding the quantity.
func tieredDiscount(cfg *TieredDiscountConfig, ctx *Context) decimal.Decimal {
	qty, ok := ctx.Attr("quantity").Number()
	if !ok {
		return decimal.Zero
	}
	price, ok := ctx.Attr("price").Number()
	if !ok {
		return decimal.Zero
	}

	var (
		best  *Tier
		found bool
	)
	for i := range cfg.Tiers {
		t := &cfg.Tiers[i]
		if qty.LessThan(decimal.NewFromInt(int64(t.MinQuantity))) {
			continue
		}
		if !found || t.MinQuantity > best.MinQuantity {
			best = t
			found = true
		}
	}
	if !found {
		return decimal.Zero
	}

	if best.IsPercentage {
		base := price.Mul(qty)
		return floorAtZero(base.Mul(best.DiscountValue).Div(hundred)).Round(2)
	}
	return floorAtZero(best.DiscountValue).Round(2)
}

func filterItems(items []Item, keep func(Item) bool) []Item {
	var out []Item
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
