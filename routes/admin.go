package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/shopcart-api/controllers/cart"
	productcontroller "github.com/junaidrashid-git/shopcart-api/controllers/product"
	userControllers "github.com/junaidrashid-git/shopcart-api/controllers/user"
	"github.com/junaidrashid-git/shopcart-api/middleware"
)

// SetupAdminRoutes registers all “/admin/*” endpoints. Requires API-Key middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey(d.AdminAPIKey))
	{
		// ─────────── User Management ───────────
		adminGroup.GET("/users", userControllers.GetAllUsers(d.Users))

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.GET("/export", productcontroller.ExportProductsToExcel(d.Products))
			productAdmin.POST("/import", productcontroller.ImportProductsFromExcel(d.Products))
			if d.Feed != nil {
				productAdmin.GET("/feed", d.Feed.Serve)
			}
		}

		// ─────────── Cart Maintenance ───────────
		adminGroup.POST("/carts/clear-expired", cartControllers.ClearExpiredCarts(d.Carts))
	}
}
