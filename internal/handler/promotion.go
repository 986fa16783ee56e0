package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"promosvc/internal/domain/promotion"
)

const maxBodySize = 1 << 20

// ListPromotions returns every stored promotion ordered by priority.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promos.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promotion.EncodePromotions(promos))
}

// ActivePromotions returns promotions with active status whose validity
// window contains the current time.
func (h *Handler) ActivePromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promos.Active(r.Context(), h.engine.Now())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promotion.EncodePromotions(promos))
}

// GetPromotion returns one promotion by id.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promos.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, promotion.ErrPromotionNotFound) {
			writeError(w, r, http.StatusNotFound, "promotion not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promotion.EncodePromotion(p))
}

// CreatePromotion stores a new promotion definition.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	p, ok := readPromotion(w, r)
	if !ok {
		return
	}

	if err := h.promos.Create(r.Context(), p); err != nil {
		if errors.Is(err, promotion.ErrDuplicatePromotion) {
			writeError(w, r, http.StatusConflict, "promotion already exists")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, promotion.EncodePromotion(p))
}

// UpdatePromotion overwrites an existing promotion. The path id wins over
// any id in the body.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	p, ok := readPromotion(w, r)
	if !ok {
		return
	}
	p.ID = r.PathValue("id")

	if err := h.promos.Update(r.Context(), p); err != nil {
		if errors.Is(err, promotion.ErrPromotionNotFound) {
			writeError(w, r, http.StatusNotFound, "promotion not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promotion.EncodePromotion(p))
}

// DeletePromotion removes a promotion.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promos.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, promotion.ErrPromotionNotFound) {
			writeError(w, r, http.StatusNotFound, "promotion not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RedeemPromotion records one use of the promotion's promo code.
func (h *Handler) RedeemPromotion(w http.ResponseWriter, r *http.Request) {
	err := h.promos.IncrementUses(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, promotion.ErrPromotionNotFound):
		writeError(w, r, http.StatusNotFound, "promotion not found")
	case errors.Is(err, promotion.ErrNoPromoCode):
		writeError(w, r, http.StatusUnprocessableEntity, "promotion has no promo code")
	case errors.Is(err, promotion.ErrUsageLimitReached):
		writeError(w, r, http.StatusUnprocessableEntity, "promo code usage limit reached")
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// ValidatePromoCode checks whether a code exists and still has uses left.
// The response is {"valid": bool} regardless; a missing code is not an
// error, it is a negative validation.
func (h *Handler) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "reading request body")
		return
	}

	var code string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		code = s
		return nil
	}); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	valid := false
	p, err := h.promos.FindByCode(r.Context(), code)
	switch {
	case err == nil:
		valid = p.PromoCode.Usable()
	case errors.Is(err, promotion.ErrPromotionNotFound):
		// Unknown code, valid stays false.
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(valid)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

func readPromotion(w http.ResponseWriter, r *http.Request) (*promotion.Promotion, bool) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "reading request body")
		return nil, false
	}
	p, err := promotion.DecodePromotion(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed promotion: "+err.Error())
		return nil, false
	}
	if p.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return nil, false
	}
	if p.EndDate.Before(p.StartDate) {
		writeError(w, r, http.StatusBadRequest, "endDate precedes startDate")
		return nil, false
	}
	return p, true
}
