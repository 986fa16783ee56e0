package promotion

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Wire format for rules and configurations, shared by the JSONB storage
// columns, the HTTP API and the seed files. Condition values are JSON
// scalars (a string or a number) or an array of scalars for the
// in/not_in/between operators. Configurations are a single-key object named
// after the strategy, e.g. {"buyXGetY": {...}}.

// EncodeRules serializes rules to their JSON wire form.
func EncodeRules(rules []Rule) []byte {
	e := &jx.Encoder{}
	encodeRules(e, rules)
	return e.Bytes()
}

func encodeRules(e *jx.Encoder, rules []Rule) {
	e.ArrStart()
	for _, r := range rules {
		encodeRule(e, r)
	}
	e.ArrEnd()
}

func encodeRule(e *jx.Encoder, r Rule) {
	e.ObjStart()
	e.FieldStart("operator")
	e.Str(string(r.Operator))
	e.FieldStart("conditions")
	e.ArrStart()
	for _, c := range r.Conditions {
		encodeCondition(e, c)
	}
	e.ArrEnd()
	if len(r.SubRules) > 0 {
		e.FieldStart("subRules")
		encodeRules(e, r.SubRules)
	}
	e.ObjEnd()
}

func encodeCondition(e *jx.Encoder, c Condition) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(c.Type))
	e.FieldStart("operator")
	e.Str(string(c.Operator))
	e.FieldStart("value")
	switch c.Operator {
	case OpIn, OpNotIn, OpBetween:
		e.ArrStart()
		for _, v := range c.Values {
			encodeValue(e, v)
		}
		e.ArrEnd()
	default:
		if len(c.Values) == 0 {
			e.Null()
		} else {
			encodeValue(e, c.Values[0])
		}
	}
	if len(c.AdditionalData) > 0 {
		e.FieldStart("additionalData")
		e.Raw(c.AdditionalData)
	}
	e.ObjEnd()
}

func encodeValue(e *jx.Encoder, v Value) {
	switch {
	case !v.IsSet():
		e.Null()
	case v.kind == kindString:
		e.Str(v.str)
	default:
		e.Num(jx.Num(v.num.String()))
	}
}

// DecodeRules parses the JSON wire form of a rule list.
func DecodeRules(data []byte) ([]Rule, error) {
	d := jx.DecodeBytes(data)
	rules, err := decodeRules(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode rules")
	}
	return rules, nil
}

func decodeRules(d *jx.Decoder) ([]Rule, error) {
	var rules []Rule
	if err := d.Arr(func(d *jx.Decoder) error {
		r, err := decodeRule(d)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return rules, nil
}

func decodeRule(d *jx.Decoder) (Rule, error) {
	var r Rule
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "operator":
			s, err := d.Str()
			if err != nil {
				return err
			}
			r.Operator = Combinator(s)
			return nil
		case "conditions":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCondition(d)
				if err != nil {
					return err
				}
				r.Conditions = append(r.Conditions, c)
				return nil
			})
		case "subRules":
			sub, err := decodeRules(d)
			if err != nil {
				return err
			}
			r.SubRules = sub
			return nil
		default:
			return d.Skip()
		}
	})
	return r, err
}

func decodeCondition(d *jx.Decoder) (Condition, error) {
	var c Condition
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Type = ConditionType(s)
			return nil
		case "operator":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Operator = Operator(s)
			return nil
		case "value":
			vals, err := decodeValues(d)
			if err != nil {
				return err
			}
			c.Values = vals
			return nil
		case "additionalData":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			c.AdditionalData = append([]byte(nil), raw...)
			return nil
		default:
			return d.Skip()
		}
	})
	return c, err
}

// decodeValues accepts a scalar or an array of scalars.
func decodeValues(d *jx.Decoder) ([]Value, error) {
	if d.Next() == jx.Array {
		var vals []Value
		if err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			vals = append(vals, v)
			return nil
		}); err != nil {
			return nil, err
		}
		return vals, nil
	}

	v, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	if !v.IsSet() {
		return nil, nil
	}
	return []Value{v}, nil
}

func decodeValue(d *jx.Decoder) (Value, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return Value{}, err
		}
		dec, err := numToDecimal(n)
		if err != nil {
			return Value{}, errors.Wrap(err, "parse number")
		}
		return NumberValue(dec), nil
	default:
		// Booleans, nulls and nested structures have no place in a
		// condition operand; drop them.
		if err := d.Skip(); err != nil {
			return Value{}, err
		}
		return Value{}, nil
	}
}

// EncodeConfig serializes a discount configuration to its keyed-union wire
// form. A nil configuration encodes as an empty object.
func EncodeConfig(cfg Config) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	switch c := cfg.(type) {
	case *BuyXGetYConfig:
		e.FieldStart("buyXGetY")
		e.ObjStart()
		e.FieldStart("buyQuantity")
		e.Int(c.BuyQuantity)
		e.FieldStart("getFreeQuantity")
		e.Int(c.GetFreeQuantity)
		encodeStrings(e, "eligibleProducts", c.EligibleProducts)
		encodeStrings(e, "eligibleCategories", c.EligibleCategories)
		e.ObjEnd()
	case *TieredDiscountConfig:
		e.FieldStart("tieredDiscount")
		e.ObjStart()
		e.FieldStart("tiers")
		e.ArrStart()
		for _, t := range c.Tiers {
			e.ObjStart()
			e.FieldStart("minQuantity")
			e.Int(t.MinQuantity)
			e.FieldStart("discountValue")
			e.Num(jx.Num(t.DiscountValue.String()))
			e.FieldStart("isPercentage")
			e.Bool(t.IsPercentage)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	case *BundleConfig:
		e.FieldStart("bundle")
		e.ObjStart()
		encodeStrings(e, "products", c.Products)
		e.FieldStart("bundlePrice")
		e.Num(jx.Num(c.BundlePrice.String()))
		e.ObjEnd()
	case *LoyaltyCashbackConfig:
		e.FieldStart("loyaltyCashback")
		e.ObjStart()
		e.FieldStart("percentage")
		e.Num(jx.Num(c.Percentage.String()))
		e.FieldStart("maxCashback")
		e.Num(jx.Num(c.MaxCashback.String()))
		e.ObjEnd()
	case *CustomerSpecificConfig:
		e.FieldStart("customerSpecific")
		e.ObjStart()
		encodeStrings(e, "segments", c.Segments)
		e.FieldStart("discountValue")
		e.Num(jx.Num(c.DiscountValue.String()))
		e.FieldStart("isPercentage")
		e.Bool(c.IsPercentage)
		e.ObjEnd()
	case *PaymentMethodConfig:
		e.FieldStart("paymentMethod")
		e.ObjStart()
		encodeStrings(e, "methods", c.Methods)
		e.FieldStart("discountValue")
		e.Num(jx.Num(c.DiscountValue.String()))
		e.FieldStart("isPercentage")
		e.Bool(c.IsPercentage)
		e.ObjEnd()
	case *RewardPointsConfig:
		e.FieldStart("rewardPoints")
		e.ObjStart()
		e.FieldStart("pointsPerCurrency")
		e.Num(jx.Num(c.PointsPerCurrency.String()))
		e.FieldStart("minPurchase")
		e.Num(jx.Num(c.MinPurchase.String()))
		e.ObjEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

func encodeStrings(e *jx.Encoder, field string, values []string) {
	e.FieldStart(field)
	e.ArrStart()
	for _, s := range values {
		e.Str(s)
	}
	e.ArrEnd()
}

// DecodeConfig parses the keyed-union wire form. An empty or unrecognized
// object decodes to a nil configuration; the engine treats that as a
// zero-discount strategy.
func DecodeConfig(data []byte) (Config, error) {
	var cfg Config
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "buyXGetY":
			c := &BuyXGetYConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "buyQuantity":
					return decodeInt(d, &c.BuyQuantity)
				case "getFreeQuantity":
					return decodeInt(d, &c.GetFreeQuantity)
				case "eligibleProducts":
					return decodeStrings(d, &c.EligibleProducts)
				case "eligibleCategories":
					return decodeStrings(d, &c.EligibleCategories)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "tieredDiscount":
			c := &TieredDiscountConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				if key != "tiers" {
					return d.Skip()
				}
				return d.Arr(func(d *jx.Decoder) error {
					var t Tier
					if err := d.Obj(func(d *jx.Decoder, key string) error {
						switch key {
						case "minQuantity":
							return decodeInt(d, &t.MinQuantity)
						case "discountValue":
							return decodeDecimal(d, &t.DiscountValue)
						case "isPercentage":
							return decodeBool(d, &t.IsPercentage)
						default:
							return d.Skip()
						}
					}); err != nil {
						return err
					}
					c.Tiers = append(c.Tiers, t)
					return nil
				})
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "bundle":
			c := &BundleConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "products":
					return decodeStrings(d, &c.Products)
				case "bundlePrice":
					return decodeDecimal(d, &c.BundlePrice)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "loyaltyCashback":
			c := &LoyaltyCashbackConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "percentage":
					return decodeDecimal(d, &c.Percentage)
				case "maxCashback":
					return decodeDecimal(d, &c.MaxCashback)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "customerSpecific":
			c := &CustomerSpecificConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "segments":
					return decodeStrings(d, &c.Segments)
				case "discountValue":
					return decodeDecimal(d, &c.DiscountValue)
				case "isPercentage":
					return decodeBool(d, &c.IsPercentage)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "paymentMethod":
			c := &PaymentMethodConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "methods":
					return decodeStrings(d, &c.Methods)
				case "discountValue":
					return decodeDecimal(d, &c.DiscountValue)
				case "isPercentage":
					return decodeBool(d, &c.IsPercentage)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		case "rewardPoints":
			c := &RewardPointsConfig{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "pointsPerCurrency":
					return decodeDecimal(d, &c.PointsPerCurrency)
				case "minPurchase":
					return decodeDecimal(d, &c.MinPurchase)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	return cfg, nil
}

func decodeInt(d *jx.Decoder, dst *int) error {
	n, err := d.Int()
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func decodeBool(d *jx.Decoder, dst *bool) error {
	b, err := d.Bool()
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	n, err := d.Num()
	if err != nil {
		return err
	}
	dec, err := numToDecimal(n)
	if err != nil {
		return errors.Wrap(err, "parse decimal")
	}
	*dst = dec
	return nil
}

// numToDecimal converts a jx number, which may be string-encoded, to a
// decimal.
func numToDecimal(n jx.Num) (decimal.Decimal, error) {
	s := strings.Trim(n.String(), `"`)
	return decimal.NewFromString(s)
}

func decodeStrings(d *jx.Decoder, dst *[]string) error {
	return d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = append(*dst, s)
		return nil
	})
}
