package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/shopcart-api/controllers/cart"
	productControllers "github.com/junaidrashid-git/shopcart-api/controllers/product"
	"github.com/junaidrashid-git/shopcart-api/middleware"
)

// SetupUserRoutes registers the product and cart endpoints. Requires a bearer token.
func SetupUserRoutes(r *gin.Engine, d Deps) {
	userGroup := r.Group("")
	userGroup.Use(middleware.ValidateToken(d.Users))
	{
		// ──────────────── Products ────────────────
		userGroup.POST("/products", productControllers.CreateProduct(d.Products))
		userGroup.GET("/products", productControllers.GetProducts(d.Products))
		userGroup.GET("/products/:id", productControllers.GetProductByID(d.Products))

		// ──────────────── Shopping Cart ────────────────
		userGroup.POST("/cart", cartControllers.AddToCart(d.Carts))
		userGroup.GET("/cart", cartControllers.GetCart(d.Carts))
		userGroup.DELETE("/cart/item/:item_id", cartControllers.RemoveFromCart(d.Carts))
	}
}
