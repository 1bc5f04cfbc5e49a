package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Transaction runs fn against a repository bound to a single database transaction.
// Any error returned by fn rolls the transaction back and is returned unchanged.
func (r *CartRepository) Transaction(ctx context.Context, fn func(tx *CartRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CartRepository{db: tx})
	})
}

// FindActiveForUser returns the user's oldest cart that is neither soft-deleted nor expired at now.
func (r *CartRepository) FindActiveForUser(ctx context.Context, userID uint, now time.Time) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("id").
		First(&cart).Error
	if err != nil {
		return nil, notFound(err, "cart for user", userID)
	}
	return &cart, nil
}

// GetOrCreateForUser returns the user's active cart, creating one that expires at now+ttl
// when none exists. Two concurrent callers may both create a cart; nothing at the storage
// level prevents it.
func (r *CartRepository) GetOrCreateForUser(ctx context.Context, userID uint, now time.Time, ttl time.Duration) (*models.Cart, error) {
	cart, err := r.FindActiveForUser(ctx, userID, now)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	cart = &models.Cart{
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// UpsertItem adds quantity to the (cart, product) line, inserting it when absent.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID uint, quantity int, now time.Time) error {
	item := models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// Touch marks the cart as active at now and pushes its expiry to now+ttl.
func (r *CartRepository) Touch(ctx context.Context, cartID uint, now time.Time, ttl time.Duration) error {
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"updated_at": now,
			"expires_at": now.Add(ttl),
		}).Error
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (r *CartRepository) FindByID(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, id).Error; err != nil {
		return nil, notFound(err, "cart", id)
	}
	return &cart, nil
}

// LoadWithItems returns the cart with its items (in insertion order) and their products.
func (r *CartRepository) LoadWithItems(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Product").
		First(&cart, id).Error
	if err != nil {
		return nil, notFound(err, "cart", id)
	}
	return &cart, nil
}

func (r *CartRepository) FindItem(ctx context.Context, id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFound(err, "cart item", id)
	}
	return &item, nil
}

// DeleteItem hard-deletes the item only when its cart belongs to userID. Ownership is
// re-checked in the statement itself, so a mismatch deletes nothing and reports ErrForbidden.
func (r *CartRepository) DeleteItem(ctx context.Context, itemID, userID uint) error {
	owned := r.db.Model(&models.Cart{}).
		Select("id").
		Where("user_id = ? AND deleted_at IS NULL", userID)

	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id IN (?)", itemID, owned).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %d: %w", itemID, apperr.ErrForbidden)
	}
	return nil
}

// DeleteUpdatedBefore soft-deletes every cart last updated before cutoff and removes
// their items. It returns the number of carts deleted.
func (r *CartRepository) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.Transaction(ctx, func(tx *CartRepository) error {
		var ids []uint
		if err := tx.db.Model(&models.Cart{}).
			Where("updated_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("find expired carts: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.db.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("delete expired cart items: %w", err)
		}
		res := tx.db.Where("id IN ?", ids).Delete(&models.Cart{})
		if res.Error != nil {
			return fmt.Errorf("delete expired carts: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
