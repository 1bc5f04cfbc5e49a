package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/shopspring/decimal"
)

type ListProductsQuery struct {
	Search   string `form:"search"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=id name price stock created_at"`
	Order    string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// GET /products
func GetProducts(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ListProductsQuery
		if !respond.BindQuery(c, &q) {
			return
		}

		minPrice, ok := parsePrice(c, "min_price", q.MinPrice)
		if !ok {
			return
		}
		maxPrice, ok := parsePrice(c, "max_price", q.MaxPrice)
		if !ok {
			return
		}

		products, err := svc.ListProducts(c.Request.Context(), product.ListQuery{
			Search:   q.Search,
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			SortBy:   q.SortBy,
			Order:    q.Order,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": products})
	}
}

func parsePrice(c *gin.Context, name, raw string) (*decimal.Decimal, bool) {
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &d, true
}
