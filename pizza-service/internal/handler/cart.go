package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/cart"
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
	addLimit func(http.Handler) http.Handler
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: newValidator(),
		addLimit: RateLimit(0, 0),
	}
}

// WithAddLimit guards POST /carts/items with mw.
func (h *CartHandler) WithAddLimit(mw func(http.Handler) http.Handler) *CartHandler {
	h.addLimit = mw
	return h
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Route("/carts", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.With(h.addLimit).Post("/items", h.handleAddItem)
	})
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := cartIdentity(w, r)
	if !ok {
		return
	}

	var req api.CartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	v, err := h.service.AddItem(r.Context(), id, cart.ItemInput{
		PizzaID:  req.PizzaID,
		Quantity: req.Quantity,
		Extras:   req.Extras,
	})
	if err != nil {
		log.Warn().Err(err).Str("pizza_id", req.PizzaID).Msg("Add to cart failed")
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}

	respondWithJSON(w, http.StatusOK, toCartResponse(v), nil)
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := cartIdentity(w, r)
	if !ok {
		return
	}

	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load cart")
		return
	}

	respondWithJSON(w, http.StatusOK, toCartResponse(v), nil)
}

// cartIdentity reads the cart headers. A missing identity is left for the
// service to reject; a token that is not a UUID is rejected here.
func cartIdentity(w http.ResponseWriter, r *http.Request) (cart.Identity, bool) {
	id := cart.Identity{Email: strings.TrimSpace(r.Header.Get(api.HeaderCartEmail))}
	if id.Email != "" {
		return id, true
	}

	raw := strings.TrimSpace(r.Header.Get(api.HeaderCartToken))
	if raw == "" {
		return id, true
	}
	token, err := uuid.FromString(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cart token", api.ErrTypeBadRequest, nil)
		return cart.Identity{}, false
	}
	id.Token = token
	return id, true
}

func toCartResponse(v *cart.View) api.CartResponse {
	resp := api.CartResponse{
		ID:         v.Cart.ID.String(),
		Items:      make([]api.CartItemResponse, 0, len(v.Items)),
		Subtotal:   v.Subtotal,
		GrandTotal: v.GrandTotal,
	}
	if v.Cart.Token != uuid.Nil {
		resp.Token = v.Cart.Token.String()
	}
	for _, it := range v.Items {
		extras := make([]string, 0, len(it.ExtraIDs))
		for _, id := range it.ExtraIDs {
			extras = append(extras, id.String())
		}
		resp.Items = append(resp.Items, api.CartItemResponse{
			ID:         it.ID.String(),
			PizzaID:    it.PizzaID.String(),
			Quantity:   it.Quantity,
			Extras:     extras,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return resp
}
