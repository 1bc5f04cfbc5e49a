package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/shopspring/decimal"
)

// Price accepts a JSON number or a numeric string.
type ProductInput struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// POST /products
func CreateProduct(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if !respond.BindJSON(c, &input) {
			return
		}

		created, err := svc.CreateProduct(c.Request.Context(), product.CreateProductInput{
			Name:  input.Name,
			Price: input.Price,
			Stock: input.Stock,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}
