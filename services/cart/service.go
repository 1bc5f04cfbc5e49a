// Package cart is the cart lifecycle engine: adding and removing items, reading
// the caller's active cart and sweeping stale carts.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/identity"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/metrics"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultCartTTL is both the lifetime of a new cart and the inactivity window
// after which the sweep removes it.
const DefaultCartTTL = 24 * time.Hour

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTL overrides DefaultCartTTL. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	products ProductFinder
	carts    CartStore
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(products ProductFinder, carts CartStore, opts ...Option) *Service {
	s := &Service{
		products: products,
		carts:    carts,
		ttl:      DefaultCartTTL,
		now:      time.Now,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("shopcart.cart"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItemToCart adds quantity of productID to the caller's active cart, creating
// the cart when needed, and returns the cart with its items.
//
// The stock check is advisory: it reads stock once before the write and nothing
// is reserved.
func (s *Service) AddItemToCart(ctx context.Context, caller identity.Caller, productID uint, quantity int) (_ *models.Cart, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddItemToCart", trace.WithAttributes(
		attribute.Int64("user.id", int64(caller.UserID)),
		attribute.Int64("product.id", int64(productID)),
		attribute.Int("quantity", quantity),
	))
	defer func() { s.finish(span, "add_item", err) }()

	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}

	verr := &apperr.ValidationError{}
	if productID == 0 {
		verr.Add("product_id", "The product id field is required.")
	}
	if quantity < 1 {
		verr.Add("quantity", "The quantity must be at least 1.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("product %d has %d in stock, %d requested: %w",
			product.ID, product.Stock, quantity, apperr.ErrInsufficientStock)
	}

	now := s.now().UTC()
	var cartID uint
	err = s.carts.Transaction(ctx, func(tx *repositories.CartRepository) error {
		cart, err := tx.GetOrCreateForUser(ctx, caller.UserID, now, s.ttl)
		if err != nil {
			return err
		}
		if err := tx.UpsertItem(ctx, cart.ID, product.ID, quantity, now); err != nil {
			return err
		}
		if err := tx.Touch(ctx, cart.ID, now, s.ttl); err != nil {
			return err
		}
		cartID = cart.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContextOr(ctx, s.log).Info("cart_item_added",
		zap.Uint("user_id", caller.UserID),
		zap.Uint("cart_id", cartID),
		zap.Uint("product_id", product.ID),
		zap.Int("quantity", quantity),
	)
	return s.carts.LoadWithItems(ctx, cartID)
}

// RemoveItemFromCart hard-deletes one item from a cart owned by the caller.
func (s *Service) RemoveItemFromCart(ctx context.Context, caller identity.Caller, itemID uint) (err error) {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveItemFromCart", trace.WithAttributes(
		attribute.Int64("user.id", int64(caller.UserID)),
		attribute.Int64("cart_item.id", int64(itemID)),
	))
	defer func() { s.finish(span, "remove_item", err) }()

	if !caller.Authenticated() {
		return apperr.ErrUnauthenticated
	}

	item, err := s.carts.FindItem(ctx, itemID)
	if err != nil {
		return err
	}
	cart, err := s.carts.FindByID(ctx, item.CartID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("cart item %d: %w", itemID, apperr.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if cart.UserID != caller.UserID {
		return fmt.Errorf("cart item %d: %w", itemID, apperr.ErrForbidden)
	}

	if err := s.carts.DeleteItem(ctx, itemID, caller.UserID); err != nil {
		return err
	}

	logging.FromContextOr(ctx, s.log).Info("cart_item_removed",
		zap.Uint("user_id", caller.UserID),
		zap.Uint("cart_id", cart.ID),
		zap.Uint("cart_item_id", itemID),
	)
	return nil
}

// GetCartForUser returns the caller's active cart with items and products.
// found is false, with a nil error, when the caller has no active cart.
func (s *Service) GetCartForUser(ctx context.Context, caller identity.Caller) (_ *models.Cart, found bool, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetCartForUser", trace.WithAttributes(
		attribute.Int64("user.id", int64(caller.UserID)),
	))
	defer func() { s.finish(span, "get_cart", err) }()

	if !caller.Authenticated() {
		return nil, false, apperr.ErrUnauthenticated
	}

	active, err := s.carts.FindActiveForUser(ctx, caller.UserID, s.now().UTC())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	cart, err := s.carts.LoadWithItems(ctx, active.ID)
	if err != nil {
		return nil, false, err
	}
	return cart, true, nil
}

// ClearExpiredCarts removes every cart not updated within the TTL, together with
// its items, and returns how many carts were removed. Running it twice in a row
// removes nothing the second time.
func (s *Service) ClearExpiredCarts(ctx context.Context) (_ int64, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.ClearExpiredCarts")
	defer func() { s.finish(span, "clear_expired", err) }()

	cutoff := s.now().UTC().Add(-s.ttl)
	n, err := s.carts.DeleteUpdatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.metrics.ExpiredCartsCleared(n)
	span.SetAttributes(attribute.Int64("carts.cleared", n))
	logging.FromContextOr(ctx, s.log).Info("expired_carts_cleared",
		zap.Int64("count", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	s.metrics.CartOperation(operation, outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if _, ok := apperr.AsValidation(err); ok {
		return "invalid"
	}
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}
