package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator. Field names in
// messages are the JSON names.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// message is the JSON error body of the API routes.
type message struct {
	Message string `json:"message"`
}

func jsonMessage(c echo.Context, code int, msg string) error {
	return c.JSON(code, message{Message: msg})
}

// bindAndValidate decodes the request body into dst and validates it,
// writing a 400 response on failure. It reports whether dst is usable.
func bindAndValidate(c echo.Context, dst any) (bool, error) {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return false, jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return false, jsonMessage(c, http.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

// validationMessage describes the first failed field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
