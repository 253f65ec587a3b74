package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

type CatalogHandler struct {
	service catalog.Service
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/pizzas", h.handleListPizzas)
	router.Get("/pizzas/{id}", h.handleGetPizza)
	router.Get("/extras", h.handleListExtras)
}

func (h *CatalogHandler) handleListPizzas(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", api.DefaultPage)
	perPage := api.ClampPerPage(queryInt(r, "page_size", api.DefaultPerPage))

	result, err := h.service.ListPizzas(r.Context(), perPage, api.Offset(page, perPage))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pizzas via service")
		respondWithServiceError(w, err, "Failed to list pizzas")
		return
	}

	items := make([]api.Pizza, 0, len(result.Pizzas))
	for _, p := range result.Pizzas {
		items = append(items, toAPIPizza(p))
	}
	respondWithJSON(w, http.StatusOK, api.Page[api.Pizza]{
		Items: items,
		Meta:  api.NewPageMeta(page, perPage, result.Total),
	}, nil)
}

func (h *CatalogHandler) handleGetPizza(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		// a malformed id can never match a pizza
		respondWithError(w, http.StatusNotFound, "Pizza not found", api.ErrTypeNotFound, nil)
		return
	}

	p, err := h.service.GetPizza(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get pizza")
		return
	}
	respondWithJSON(w, http.StatusOK, toAPIPizza(*p), nil)
}

func (h *CatalogHandler) handleListExtras(w http.ResponseWriter, r *http.Request) {
	extras, err := h.service.ListExtras(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list extras via service")
		respondWithServiceError(w, err, "Failed to list extras")
		return
	}

	items := make([]api.Extra, 0, len(extras))
	for _, e := range extras {
		items = append(items, api.Extra{ID: e.ID.String(), Name: e.Name, Price: e.Price})
	}
	respondWithJSON(w, http.StatusOK, items, nil)
}

func toAPIPizza(p catalog.Pizza) api.Pizza {
	return api.Pizza{
		ID:          p.ID.String(),
		Name:        p.Name,
		BasePrice:   p.BasePrice,
		Ingredients: p.Ingredients,
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
	}
}
