package productcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// Column positions follow the export layout; the ID column is ignored so an
// exported sheet can be imported as new products.
const (
	colName  = 1
	colPrice = 2
	colStock = 3
)

type skippedRow struct {
	Row    int                 `json:"row"`
	Errors map[string][]string `json:"errors"`
}

// POST /admin/products/import
func ImportProductsFromExcel(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		if len(xlFile.Sheets) == 0 || xlFile.Sheets[0].MaxRow < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or missing header row"})
			return
		}

		sheet := xlFile.Sheets[0]
		created := 0
		skipped := []skippedRow{}

		for i := 1; i < sheet.MaxRow; i++ {
			row := sheet.Rows[i]
			get := func(index int) string {
				if row != nil && index < len(row.Cells) {
					return strings.TrimSpace(row.Cells[index].String())
				}
				return ""
			}

			input, verr := rowInput(get(colName), get(colPrice), get(colStock))
			if verr == nil {
				_, err := svc.CreateProduct(c.Request.Context(), input)
				if err == nil {
					created++
					continue
				}
				var ok bool
				if verr, ok = apperr.AsValidation(err); !ok {
					respond.Error(c, err)
					return
				}
			}
			skipped = append(skipped, skippedRow{Row: i + 1, Errors: verr.Fields})
		}

		c.JSON(http.StatusOK, gin.H{"created": created, "skipped": skipped})
	}
}

// rowInput parses raw cell text. Cells that are present but not numeric are
// reported here; missing and out-of-range values are left to the service.
func rowInput(name, rawPrice, rawStock string) (product.CreateProductInput, *apperr.ValidationError) {
	input := product.CreateProductInput{Name: name}
	verr := &apperr.ValidationError{}

	if rawPrice != "" {
		if d, err := decimal.NewFromString(rawPrice); err == nil {
			input.Price = &d
		} else {
			verr.Add("price", "The price must be a number.")
		}
	}
	if rawStock != "" {
		if n, err := strconv.Atoi(rawStock); err == nil {
			input.Stock = &n
		} else {
			verr.Add("stock", "The stock must be an integer.")
		}
	}

	if verr.OrNil() != nil {
		return input, verr
	}
	return input, nil
}
