package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"promosvc/internal/domain/checkout"
)

// Quote prices a cart against the active promotions.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "reading request body")
		return
	}

	req, err := decodeQuoteRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	q, err := h.checkout.Quote(r.Context(), req)
	if err != nil {
		var iq *checkout.InvalidQuantityError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.As(err, &iq):
			writeError(w, r, http.StatusUnprocessableEntity, iq.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, encodeQuote(q))
}

func decodeQuoteRequest(body []byte) (checkout.QuoteRequest, error) {
	var req checkout.QuoteRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var line checkout.CartLine
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "sku":
						s, err := d.Str()
						line.SKU = s
						return err
					case "category":
						s, err := d.Str()
						line.Category = s
						return err
					case "price":
						n, err := d.Num()
						if err != nil {
							return err
						}
						price, err := decimal.NewFromString(n.String())
						if err != nil {
							return errors.Wrap(err, "parse price")
						}
						line.Price = price
						return nil
					case "quantity":
						q, err := d.Int()
						line.Quantity = q
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		case "promoCode":
			s, err := d.Str()
			req.PromoCode = s
			return err
		case "customerSegment":
			s, err := d.Str()
			req.CustomerSegment = s
			return err
		case "paymentMethod":
			s, err := d.Str()
			req.PaymentMethod = s
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func encodeQuote(q *checkout.Quote) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Num(jx.Num(q.Subtotal.String()))
	e.FieldStart("discount")
	e.Num(jx.Num(q.Discount.String()))
	e.FieldStart("total")
	e.Num(jx.Num(q.Total.String()))
	if q.Applied != nil {
		e.FieldStart("applied")
		encodeAppliedPromotion(e, *q.Applied)
	}
	e.FieldStart("eligible")
	e.ArrStart()
	for _, a := range q.Eligible {
		encodeAppliedPromotion(e, a)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func encodeAppliedPromotion(e *jx.Encoder, a checkout.AppliedPromotion) {
	e.ObjStart()
	e.FieldStart("promotionId")
	e.Str(a.PromotionID)
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("discount")
	e.Num(jx.Num(a.Discount.String()))
	e.ObjEnd()
}
