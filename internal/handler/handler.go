// Package handler exposes the promotion engine over HTTP: promotion CRUD,
// promo code validation and redemption, and cart quoting.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"promosvc/internal/domain/checkout"
	"promosvc/internal/domain/promotion"
)

// Handler serves the promotion API, delegating business logic to the
// promotion store, the rule engine and the checkout service.
type Handler struct {
	promos   promotion.Store
	engine   *promotion.Engine
	checkout *checkout.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(promos promotion.Store, engine *promotion.Engine, checkoutSvc *checkout.Service) *Handler {
	return &Handler{
		promos:   promos,
		engine:   engine,
		checkout: checkoutSvc,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/promotion", h.ListPromotions)
	mux.HandleFunc("POST /api/promotion", h.CreatePromotion)
	mux.HandleFunc("GET /api/promotion/active", h.ActivePromotions)
	mux.HandleFunc("GET /api/promotion/{id}", h.GetPromotion)
	mux.HandleFunc("PUT /api/promotion/{id}", h.UpdatePromotion)
	mux.HandleFunc("DELETE /api/promotion/{id}", h.DeletePromotion)
	mux.HandleFunc("POST /api/promotion/{id}/redeem", h.RedeemPromotion)
	mux.HandleFunc("POST /api/promocode/validate", h.ValidatePromoCode)
	mux.HandleFunc("POST /api/quote", h.Quote)
}

// writeJSON writes an already-encoded JSON payload.
func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes the {code, message} error body shared by every
// endpoint.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.Int("status", status),
			zap.String("message", msg),
		)
		// Internal details stay in the log.
		msg = "internal error"
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}
