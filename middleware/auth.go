package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/identity"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"go.uber.org/zap"
)

const CallerKey = "caller"

type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (identity.Caller, error)
}

// ValidateToken resolves the bearer token into an identity.Caller and stores it
// on the request context. Requests without a valid token stop with 401; a
// failure to check the token stops with 500.
func ValidateToken(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		tokenString := strings.TrimSpace(header)
		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
			tokenString = strings.TrimSpace(tokenString[7:])
		}

		ctx := c.Request.Context()
		caller, err := a.Authenticate(ctx, tokenString)
		switch {
		case errors.Is(err, apperr.ErrUnauthenticated), errors.Is(err, apperr.ErrNotFound):
			logging.FromContext(ctx).Debug("token_rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		case err != nil:
			respond.Error(c, err)
			c.Abort()
			return
		}

		ctx = identity.NewContext(ctx, caller)
		ctx = logging.WithContext(ctx, logging.FromContext(ctx).With(zap.Uint("user_id", caller.UserID)))
		c.Request = c.Request.WithContext(ctx)
		c.Set(CallerKey, caller)
		c.Next()
	}
}
