package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	Order    string
}

var productSortColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"price":      true,
	"stock":      true,
	"created_at": true,
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if s := strings.TrimSpace(f.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}

	sortBy := f.SortBy
	if !productSortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToLower(f.Order)
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	var products []models.Product
	if err := query.Order(sortBy + " " + order).Order("id " + order).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
