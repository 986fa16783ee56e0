package promotion

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EncodePromotion serializes a whole promotion to its JSON wire form, the
// same shape the HTTP API and the seed files use.
func EncodePromotion(p *Promotion) []byte {
	e := &jx.Encoder{}
	encodePromotion(e, p)
	return e.Bytes()
}

// EncodePromotions serializes a promotion list.
func EncodePromotions(promos []Promotion) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for i := range promos {
		encodePromotion(e, &promos[i])
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodePromotion(e *jx.Encoder, p *Promotion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	e.FieldStart("type")
	e.Str(string(p.Type))
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("startDate")
	e.Str(p.StartDate.UTC().Format(time.RFC3339))
	e.FieldStart("endDate")
	e.Str(p.EndDate.UTC().Format(time.RFC3339))
	e.FieldStart("priority")
	e.Int(p.Priority)
	e.FieldStart("rules")
	encodeRules(e, p.Rules)
	e.FieldStart("configuration")
	e.Raw(EncodeConfig(p.Config))
	if p.PromoCode != nil {
		e.FieldStart("promoCode")
		e.ObjStart()
		e.FieldStart("code")
		e.Str(p.PromoCode.Code)
		e.FieldStart("usageLimit")
		e.Int(p.PromoCode.UsageLimit)
		e.FieldStart("usedCount")
		e.Int(p.PromoCode.UsedCount)
		e.FieldStart("perCustomerLimit")
		e.Int(p.PromoCode.PerCustomerLimit)
		e.ObjEnd()
	}
	if !p.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		e.Str(p.CreatedAt.UTC().Format(time.RFC3339))
	}
	if !p.UpdatedAt.IsZero() {
		e.FieldStart("updatedAt")
		e.Str(p.UpdatedAt.UTC().Format(time.RFC3339))
	}
	e.ObjEnd()
}

// DecodePromotion parses one promotion from its JSON wire form.
func DecodePromotion(data []byte) (*Promotion, error) {
	d := jx.DecodeBytes(data)
	p, err := decodePromotion(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode promotion")
	}
	return p, nil
}

// DecodePromotions parses a promotion list, e.g. an embedded seed file.
func DecodePromotions(data []byte) ([]Promotion, error) {
	d := jx.DecodeBytes(data)
	var promos []Promotion
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodePromotion(d)
		if err != nil {
			return err
		}
		promos = append(promos, *p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode promotions")
	}
	return promos, nil
}

func decodePromotion(d *jx.Decoder) (*Promotion, error) {
	p := &Promotion{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeString(d, &p.ID)
		case "name":
			return decodeString(d, &p.Name)
		case "description":
			return decodeString(d, &p.Description)
		case "type":
			var s string
			if err := decodeString(d, &s); err != nil {
				return err
			}
			p.Type = Type(s)
			return nil
		case "status":
			var s string
			if err := decodeString(d, &s); err != nil {
				return err
			}
			p.Status = Status(s)
			return nil
		case "startDate":
			return decodeTime(d, &p.StartDate)
		case "endDate":
			return decodeTime(d, &p.EndDate)
		case "priority":
			return decodeInt(d, &p.Priority)
		case "rules":
			rules, err := decodeRules(d)
			if err != nil {
				return err
			}
			p.Rules = rules
			return nil
		case "configuration":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			cfg, err := DecodeConfig(raw)
			if err != nil {
				return err
			}
			p.Config = cfg
			return nil
		case "promoCode":
			if d.Next() == jx.Null {
				return d.Skip()
			}
			code := &PromoCode{}
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "code":
					return decodeString(d, &code.Code)
				case "usageLimit":
					return decodeInt(d, &code.UsageLimit)
				case "usedCount":
					return decodeInt(d, &code.UsedCount)
				case "perCustomerLimit":
					return decodeInt(d, &code.PerCustomerLimit)
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			p.PromoCode = code
			return nil
		case "createdAt":
			return decodeTime(d, &p.CreatedAt)
		case "updatedAt":
			return decodeTime(d, &p.UpdatedAt)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeString(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func decodeTime(d *jx.Decoder, dst *time.Time) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return errors.Wrapf(err, "parse time %q", s)
	}
	*dst = t
	return nil
}
