// Package order turns selections into checkout requests.
package order

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/selection"
)

// ValidationError lists request fields that failed checks before sending.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "order: validation failed: " + strings.Join(parts, ", ")
}

var ErrNoLines = errors.New("order: at least one selection is required")

// Encoder builds api.OrderRequest values.
type Encoder struct {
	validate      *validator.Validate
	countedExtras bool
}

type Option func(*Encoder)

// WithCountedExtras also fills ExtraQuantities with the explicit id to
// quantity mapping. The repeated ids are still sent.
func WithCountedExtras() Option {
	return func(e *Encoder) {
		e.countedExtras = true
	}
}

func NewEncoder(opts ...Option) *Encoder {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	e := &Encoder{validate: v}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode produces a request with exactly one line for sel.
func (e *Encoder) Encode(sel *selection.Selection, customer api.CustomerInfo) (api.OrderRequest, error) {
	return e.EncodeLines(customer, sel)
}

// EncodeLines produces one line per selection, in order.
func (e *Encoder) EncodeLines(customer api.CustomerInfo, sels ...*selection.Selection) (api.OrderRequest, error) {
	if len(sels) == 0 {
		return api.OrderRequest{}, ErrNoLines
	}

	fields := make(map[string]string)

	customer = customer.Trimmed()
	if err := e.validate.Struct(customer); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return api.OrderRequest{}, fmt.Errorf("order: validate customer: %w", err)
		}
		for _, fe := range verrs {
			fields["customer."+fe.Field()] = describe(fe)
		}
	}

	lines := make([]api.OrderLineRequest, 0, len(sels))
	for i, sel := range sels {
		if !sel.HasPizza() {
			fields[fmt.Sprintf("lines[%d].pizza", i)] = "is required"
			continue
		}
		lines = append(lines, e.line(sel))
	}

	if len(fields) > 0 {
		return api.OrderRequest{}, &ValidationError{Fields: fields}
	}

	return api.OrderRequest{Lines: lines, Customer: customer}, nil
}

func (e *Encoder) line(sel *selection.Selection) api.OrderLineRequest {
	extras := sel.Extras()

	ids := make([]string, 0, len(extras))
	var counted map[string]int
	if e.countedExtras && len(extras) > 0 {
		counted = make(map[string]int, len(extras))
	}

	for _, es := range extras {
		for range es.Quantity {
			ids = append(ids, es.Extra.ID)
		}
		if counted != nil {
			counted[es.Extra.ID] = es.Quantity
		}
	}

	return api.OrderLineRequest{
		PizzaID:         sel.Pizza().ID,
		Quantity:        sel.PizzaQuantity(),
		Extras:          ids,
		ExtraQuantities: counted,
	}
}

// CountExtras decodes a repeated id list back into per id quantities.
func CountExtras(ids []string) map[string]int {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	return counts
}

// SortedExtraIDs returns the distinct ids of a counted extras map in a stable order.
func SortedExtraIDs(counts map[string]int) []string {
	return slices.Sorted(maps.Keys(counts))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}
