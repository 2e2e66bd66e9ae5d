// Package validation binds and validates request structs
package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates value against its validate tags and returns a 400 error
// describing every failed rule
func Struct[T any](value T) error {
	if err := validate.Struct(value); err != nil {
		return httperror.WrapError(http.StatusBadRequest, ErrorToString(value, err))
	}
	return nil
}

// BindRequest binds the request into T and validates it
func BindRequest[T any](c echo.Context) (T, error) {
	var v T

	if err := c.Bind(&v); err != nil {
		return v, httperror.WrapError(http.StatusBadRequest, err)
	}

	if err := Struct(v); err != nil {
		return v, err
	}

	return v, nil
}

// ErrorToString flattens validator errors into one readable error
func ErrorToString(input any, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s' (expected '%s', got '%v')", fe.StructField(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid %T: %s", input, strings.Join(msgs, "; "))
}
