package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/order"
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=created confirmed preparing ready delivered"`
}

type OrderHandler struct {
	service       order.Service
	validate      *validator.Validate
	checkoutLimit func(http.Handler) http.Handler
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:       service,
		validate:      newValidator(),
		checkoutLimit: RateLimit(0, 0),
	}
}

// WithCheckoutLimit guards POST /orders/checkout with mw.
func (h *OrderHandler) WithCheckoutLimit(mw func(http.Handler) http.Handler) *OrderHandler {
	h.checkoutLimit = mw
	return h
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleHistory)
		r.With(h.checkoutLimit).Post("/checkout", h.handleCheckout)
		r.Post("/quote", h.handleQuote)
		r.Get("/{id}", h.handleGetOrderByID)
		r.Patch("/{id}/status", h.handleUpdateStatus)
	})
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	customer := order.Customer{
		UniqueIdentifier: req.Customer.UniqueIdentifier,
		Fullname:         req.Customer.Fullname,
		FullAddress:      req.Customer.FullAddress,
	}

	placed, err := h.service.Checkout(r.Context(), customer, toLineInputs(req.Lines))
	if err != nil {
		log.Warn().Err(err).Str("unique_identifier", customer.UniqueIdentifier).Msg("Checkout failed")
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	respondWithJSON(w, http.StatusCreated, toOrderResponse(placed), nil)
}

func (h *OrderHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	q, err := h.service.Quote(r.Context(), toLineInputs(req.Lines))
	if err != nil {
		respondWithServiceError(w, err, "Failed to price order")
		return
	}

	respondWithJSON(w, http.StatusOK, api.QuoteResponse{
		Subtotal:    q.Subtotal,
		ExtrasTotal: q.ExtrasTotal,
		GrandTotal:  q.GrandTotal,
		Lines:       toLineResponses(q.Lines),
	}, nil)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(o), nil)
}

func (h *OrderHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", api.DefaultPage)
	perPage := api.ClampPerPage(queryInt(r, "per_page", api.DefaultPerPage))
	query := r.URL.Query()

	result, err := h.service.History(r.Context(), order.HistoryQuery{
		UniqueIdentifier: strings.TrimSpace(query.Get("unique_identifier")),
		Search:           strings.TrimSpace(query.Get("search")),
		Limit:            perPage,
		Offset:           api.Offset(page, perPage),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to load order history")
		return
	}

	items := make([]api.OrderResponse, 0, len(result.Orders))
	for i := range result.Orders {
		items = append(items, toOrderResponse(&result.Orders[i]))
	}
	meta := api.NewPageMeta(page, perPage, result.Total)
	respondWithJSON(w, http.StatusOK, items, &meta)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.service.UpdateOrderStatus(r.Context(), id, order.OrderStatus(req.Status)); err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	o, err := h.service.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(o), nil)
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter", api.ErrTypeBadRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// toLineInputs prefers the explicit extra_quantities mapping and otherwise
// counts the repeated ids in extras.
func toLineInputs(lines []api.OrderLineRequest) []order.LineInput {
	out := make([]order.LineInput, 0, len(lines))
	for _, l := range lines {
		extras := l.ExtraQuantities
		if len(extras) == 0 {
			extras = make(map[string]int, len(l.Extras))
			for _, id := range l.Extras {
				extras[id]++
			}
		}
		out = append(out, order.LineInput{PizzaID: l.PizzaID, Quantity: l.Quantity, Extras: extras})
	}
	return out
}

func toLineResponses(lines []order.Line) []api.OrderLineResponse {
	out := make([]api.OrderLineResponse, 0, len(lines))
	for _, l := range lines {
		resp := api.OrderLineResponse{
			PizzaID:         l.PizzaID.String(),
			Quantity:        l.Quantity,
			Extras:          l.ExtraIDs(),
			UnitBasePrice:   l.UnitBasePrice,
			UnitExtrasTotal: l.UnitExtrasTotal,
			LineTotal:       l.LineTotal,
		}
		if l.ID != uuid.Nil {
			resp.ID = l.ID.String()
		}
		out = append(out, resp)
	}
	return out
}

func toOrderResponse(o *order.Order) api.OrderResponse {
	return api.OrderResponse{
		ID:               o.ID.String(),
		UniqueIdentifier: o.Customer.UniqueIdentifier,
		Status:           api.OrderStatus(o.Status),
		Subtotal:         o.Subtotal,
		ExtrasTotal:      o.ExtrasTotal,
		GrandTotal:       o.GrandTotal,
		Lines:            toLineResponses(o.Lines),
		CreatedAt:        o.CreatedAt,
	}
}
