package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/notifications"
	"github.com/junaidrashid-git/shopcart-api/services/cart"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/junaidrashid-git/shopcart-api/services/user"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Users       *user.Service
	Products    *product.Service
	Carts       *cart.Service
	Feed        *notifications.Feed
	AdminAPIKey string
}

// SetupRoutes is the single entry point that wires up the Auth, User and Admin route groups.
func SetupRoutes(r *gin.Engine, d Deps) {
	// Public auth routes, plus logout behind the bearer token
	SetupAuthRoutes(r, d)

	// Products and cart (bearer token)
	SetupUserRoutes(r, d)

	// Operator routes (API key)
	SetupAdminRoutes(r, d)
}
