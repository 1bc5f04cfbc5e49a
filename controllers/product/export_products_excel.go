package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{"ID", "Name", "Price", "Stock", "CreatedAt", "UpdatedAt"}

// GET /admin/products/export
func ExportProductsToExcel(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := svc.ListProducts(c.Request.Context(), product.ListQuery{SortBy: "id", Order: "asc"})
		if err != nil {
			respond.Error(c, err)
			return
		}

		file, err := productsWorkbook(products)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			respond.Error(c, err)
			return
		}
	}
}

func productsWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Price.StringFixed(2))
		row.AddCell().SetValue(p.Stock)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}
