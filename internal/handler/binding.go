package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"procurehub/internal/wizard"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindError reports a binding failure. Validation failures are resolved to
// the wizard fields they concern so the client can route the user to the
// offending step; anything else surfaces as a plain bad request.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var fields []wizard.FieldError
		for _, fe := range verrs {
			if mapped, ok := wizard.MapValidationMessage(validationMessage(fe)); ok {
				fields = append(fields, mapped)
			}
		}
		if len(fields) > 0 {
			c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, fields[0].Message, fields))
			return
		}
	}

	if mapped, ok := wizard.MapValidationMessage(err.Error()); ok {
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, mapped.Message, []wizard.FieldError{mapped}))
		return
	}

	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// validationMessage rewrites a validator failure into the quoted-field form
// the wizard mapper understands.
func validationMessage(fe validator.FieldError) string {
	name := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is not allowed to be empty", name)
	case "gt", "min":
		return fmt.Sprintf("%q must be greater than 0", name)
	case "oneof":
		return fmt.Sprintf("%q must be one of the supported values", name)
	default:
		return fmt.Sprintf("%q is invalid", name)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
