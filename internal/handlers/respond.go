package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"storefront/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var statusByKind = map[apperror.Kind]int{
	apperror.NotFound:     fiber.StatusNotFound,
	apperror.Validation:   fiber.StatusBadRequest,
	apperror.Conflict:     fiber.StatusConflict,
	apperror.Unauthorized: fiber.StatusUnauthorized,
	apperror.Forbidden:    fiber.StatusForbidden,
	apperror.Upstream:     fiber.StatusBadGateway,
	apperror.Internal:     fiber.StatusInternalServerError,
}

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	return "validation failed"
}

// bind parses the request body into dst and validates it.
func bind(c *fiber.Ctx, validate *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		errorMessages := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return &validationError{fields: errorMessages}
	}
	return nil
}

// respondError renders err as {"message", "error"} with the status of its kind.
// Internal and upstream failures hide their cause from the client.
func respondError(c *fiber.Ctx, err error) error {
	var ve *validationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   string(apperror.Validation),
			"errors":  ve.fields,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
			"error":   string(kindOfStatus(fe.Code)),
		})
	}

	kind := apperror.KindOf(err)
	message := err.Error()
	switch kind {
	case apperror.Internal:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		message = "Internal server error"
	case apperror.Upstream:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("upstream failure")
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	}
	return c.Status(statusByKind[kind]).JSON(fiber.Map{
		"message": message,
		"error":   string(kind),
	})
}

// ErrorHandler is the Fiber error handler. It renders errors that escaped a
// handler, such as routing misses and recovered panics, in the same shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}

func kindOfStatus(code int) apperror.Kind {
	for kind, status := range statusByKind {
		if status == code {
			return kind
		}
	}
	if code >= fiber.StatusInternalServerError {
		return apperror.Internal
	}
	return apperror.Validation
}

// page parses the 1-based "page" query parameter.
func page(c *fiber.Ctx) int {
	p := c.QueryInt("page", 1)
	if p < 1 {
		return 1
	}
	return p
}

// chain returns a fresh handler list of guards followed by h.
func chain(guards []fiber.Handler, h ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+len(h))
	out = append(out, guards...)
	return append(out, h...)
}
