// Package respond holds the request binding and error mapping shared by every controller.
package respond

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/identity"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"go.uber.org/zap"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
	}
}

// fieldName reports struct fields by their json or form name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// BindJSON decodes the request body into dst. A malformed body is answered with
// 400 and failed binding rules with 422. It reports whether the handler may go on.
func BindJSON(c *gin.Context, dst any) bool {
	return handleBindError(c, c.ShouldBindJSON(dst))
}

// BindQuery is BindJSON for the query string.
func BindQuery(c *gin.Context, dst any) bool {
	return handleBindError(c, c.ShouldBindQuery(dst))
}

func handleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		Validation(c, fromValidator(verrs))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
	return false
}

func fromValidator(verrs validator.ValidationErrors) *apperr.ValidationError {
	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("The %s field is required.", field)
		case "min":
			msg = fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
		case "max":
			msg = fmt.Sprintf("The %s must not be greater than %s.", field, fe.Param())
		case "oneof":
			msg = fmt.Sprintf("The %s must be one of: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "email":
			msg = fmt.Sprintf("The %s must be a valid email address.", field)
		default:
			msg = fmt.Sprintf("The %s is invalid.", field)
		}
		out.Add(field, msg)
	}
	return out
}

// Validation writes a 422 listing every violated field.
func Validation(c *gin.Context, verr *apperr.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation failed",
		"errors": verr.Fields,
	})
}

// Error maps err onto a status code and a message that is safe to show.
// Unexpected errors are logged and answered with 500.
func Error(c *gin.Context, err error) {
	if verr, ok := apperr.AsValidation(err); ok {
		Validation(c, verr)
		return
	}

	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "This action is unauthorized."})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).Error("request_failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Caller returns the identity the auth middleware attached to the request.
func Caller(c *gin.Context) identity.Caller {
	caller, _ := identity.FromContext(c.Request.Context())
	return caller
}
