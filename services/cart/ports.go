package cart

import (
	"context"
	"time"

	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/repositories"
)

type ProductFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}

// CartStore is the persistence the engine needs. Transaction hands fn a store
// bound to one database transaction.
type CartStore interface {
	Transaction(ctx context.Context, fn func(tx *repositories.CartRepository) error) error
	FindActiveForUser(ctx context.Context, userID uint, now time.Time) (*models.Cart, error)
	FindByID(ctx context.Context, id uint) (*models.Cart, error)
	LoadWithItems(ctx context.Context, id uint) (*models.Cart, error)
	FindItem(ctx context.Context, id uint) (*models.CartItem, error)
	DeleteItem(ctx context.Context, itemID, userID uint) error
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
