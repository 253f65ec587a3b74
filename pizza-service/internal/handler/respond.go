package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/cart"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/order"
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

// respondWithJSON wraps data in a success envelope.
func respondWithJSON(w http.ResponseWriter, code int, data any, meta *api.PageMeta) {
	env, err := api.OK(data, meta)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response data")
		respondWithError(w, http.StatusInternalServerError, "Failed to encode response", api.ErrTypeInternal, nil)
		return
	}
	writeEnvelope(w, code, env)
}

func respondWithError(w http.ResponseWriter, code int, message, errType string, details map[string]string) {
	writeEnvelope(w, code, api.Fail(message, errType, details))
}

func writeEnvelope(w http.ResponseWriter, code int, env api.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithServiceError maps a domain error to its status and error type.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code, errType := mapErrorToStatusCode(err)
	message := fallback
	if code != http.StatusInternalServerError {
		message = clientMessage(err)
	}
	respondWithError(w, code, message, errType, nil)
}

func mapErrorToStatusCode(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrPizzaNotFound),
		errors.Is(err, catalog.ErrExtraNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, api.ErrTypeNotFound
	case errors.Is(err, order.ErrNoLines),
		errors.Is(err, order.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, api.ErrTypeValidation
	case errors.Is(err, cart.ErrNoIdentity):
		return http.StatusBadRequest, api.ErrTypeBadRequest
	case errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict, api.ErrTypeConflict
	default:
		return http.StatusInternalServerError, api.ErrTypeInternal
	}
}

func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 && strings.HasPrefix(msg, "service") {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationErrors keys each failure by its JSON path without the
// top-level struct name, e.g. "lines[0].quantity".
func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		details[field] = describe(fe)
	}
	return details
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// normalizer is implemented by request bodies that clean themselves up
// before validation.
type normalizer interface {
	Normalize()
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", api.ErrTypeBadRequest, nil)
		return false
	}

	if n, ok := dst.(normalizer); ok {
		n.Normalize()
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondWithError(w, http.StatusUnprocessableEntity, "Validation failed", api.ErrTypeValidation, formatValidationErrors(verrs))
			return false
		}
		log.Error().Err(err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error", api.ErrTypeInternal, nil)
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter, returning fallback when
// it is absent or malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
