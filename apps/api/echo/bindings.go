package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core"
)

type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request body into data and validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data validatable) error {
	if err := ctx.Bind(data); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Code == http.StatusBadRequest {
			return errInvalidBody
		}
		return errors.Wrap(err, "binding request body")
	}
	return data.Validate(validate)
}

// idParam returns the path parameter name as an entity ID.
// Anything but a positive integer is reported as not found.
func idParam(ctx echo.Context, name string) (int64, error) {
	id, ok := core.ParseID(ctx.Param(name))
	if !ok {
		return 0, errHttpNotFound
	}
	return id, nil
}
