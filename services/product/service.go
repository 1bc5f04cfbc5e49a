// Package product creates and reads catalogue products and announces new ones.
package product

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/metrics"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/notifications"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxNameLength = 255

// maxPrice is the largest value a decimal(12,2) column holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

type Store interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, error)
}

type Publisher interface {
	Publish(ctx context.Context, e notifications.Event) error
}

// CreateProductInput uses pointers so that a missing field can be told apart
// from an explicit zero.
type CreateProductInput struct {
	Name  string
	Price *decimal.Decimal
	Stock *int
}

// Validate reports every violated field at once.
func (in CreateProductInput) Validate() error {
	verr := &apperr.ValidationError{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > maxNameLength:
		verr.Add("name", "The name must not be greater than 255 characters.")
	}

	switch {
	case in.Price == nil:
		verr.Add("price", "The price field is required.")
	case in.Price.IsNegative():
		verr.Add("price", "The price must be at least 0.")
	case in.Price.GreaterThan(maxPrice):
		verr.Add("price", "The price must not be greater than 9999999999.99.")
	}

	switch {
	case in.Stock == nil:
		verr.Add("stock", "The stock field is required.")
	case *in.Stock < 0:
		verr.Add("stock", "The stock must be at least 0.")
	}

	return verr.OrNil()
}

// ListQuery filters and orders a product listing. Unknown sort columns fall
// back to newest first.
type ListQuery struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	Order    string
}

type Service struct {
	store     Store
	publisher Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewService(store Store, publisher Publisher, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, log: logger, metrics: m}
}

// CreateProduct validates and persists a product, then queues a ProductCreated
// notification. A notification that cannot be queued is logged and dropped;
// the product is still returned.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:  strings.TrimSpace(in.Name),
		Price: in.Price.Round(2),
		Stock: *in.Stock,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	log := logging.FromContextOr(ctx, s.log)
	log.Info("product_created",
		zap.Uint("product_id", p.ID),
		zap.String("name", p.Name),
		zap.String("price", p.Price.StringFixed(2)),
		zap.Int("stock", p.Stock),
	)

	if s.publisher != nil {
		event := notifications.ProductCreated{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Stock:     p.Stock,
			CreatedAt: p.CreatedAt.UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Warn("product_created_publish_failed",
				zap.Uint("product_id", p.ID),
				zap.Error(err),
			)
			s.metrics.Notification(event.EventName(), "publish_failed")
		} else {
			s.metrics.Notification(event.EventName(), "queued")
		}
	}

	return p, nil
}

func (s *Service) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, q ListQuery) ([]models.Product, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, apperr.Invalid("min_price", "The min price must not be greater than the max price.")
	}
	return s.store.List(ctx, repositories.ProductFilter{
		Search:   q.Search,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		SortBy:   q.SortBy,
		Order:    q.Order,
	})
}
