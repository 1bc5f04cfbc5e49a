package productcontroller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/product"
)

// GetProductByID returns a single product.
// URL param: /products/:id
func GetProductByID(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
			return
		}

		p, err := svc.FindProduct(c.Request.Context(), uint(id))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": p})
	}
}
