package cartControllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/cart"
)

// Missing fields decode to zero and are rejected by the service with a 422.
type CartItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// POST /cart
func AddToCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CartItemInput
		if !respond.BindJSON(c, &input) {
			return
		}

		result, err := svc.AddItemToCart(c.Request.Context(), respond.Caller(c), input.ProductID, input.Quantity)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

// DELETE /cart/item/:item_id
func RemoveFromCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
		if err != nil || itemID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		if err := svc.RemoveItemFromCart(c.Request.Context(), respond.Caller(c), uint(itemID)); err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "The item has been removed."})
	}
}

// GET /cart
func GetCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, found, err := svc.GetCartForUser(c.Request.Context(), respond.Caller(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

// POST /admin/carts/clear-expired
func ClearExpiredCarts(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.ClearExpiredCarts(c.Request.Context())
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Expired carts cleared successfully.", "cleared": n})
	}
}
