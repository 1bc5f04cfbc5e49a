package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/database/dbtest"
	"github.com/junaidrashid-git/shopcart-api/identity"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db    *gorm.DB
	svc   *Service
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc := NewService(
		repositories.NewProductRepository(db),
		repositories.NewCartRepository(db),
		WithClock(clock.Now),
	)
	return &fixture{db: db, svc: svc, clock: clock}
}

func (f *fixture) product(t *testing.T, name string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString("19.99"), Stock: stock}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (f *fixture) countItems(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.CartItem{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func (f *fixture) countCarts(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.Cart{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

var alice = identity.Caller{UserID: 1, TokenID: "alice-token"}
var bob = identity.Caller{UserID: 2, TokenID: "bob-token"}

func TestAddItemToCartMergesRepeatedAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 5)

	if _, err := f.svc.AddItemToCart(ctx, alice, p.ID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := f.svc.AddItemToCart(ctx, alice, p.ID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(cart.Items))
	}
	if got := cart.Items[0].Quantity; got != 5 {
		t.Fatalf("quantity = %d, want 5", got)
	}
	if cart.Items[0].Product.Name != "Lamp" {
		t.Fatalf("product not loaded: %+v", cart.Items[0].Product)
	}
	if cart.UserID != alice.UserID {
		t.Fatalf("cart owner = %d", cart.UserID)
	}
	if n := f.countItems(t); n != 1 {
		t.Fatalf("cart_items rows = %d", n)
	}
}

func TestAddItemToCartKeepsOneCartAcrossProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lamp := f.product(t, "Lamp", 5)
	desk := f.product(t, "Desk", 2)

	first, err := f.svc.AddItemToCart(ctx, alice, lamp.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.AddItemToCart(ctx, alice, desk.ID, 2)
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same cart, got %d and %d", first.ID, second.ID)
	}
	if len(second.Items) != 2 || second.Items[0].ProductID != lamp.ID || second.Items[1].ProductID != desk.ID {
		t.Fatalf("unexpected items: %+v", second.Items)
	}
}

func TestAddItemToCartInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 1)

	_, err := f.svc.AddItemToCart(ctx, alice, p.ID, 2)
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if n := f.countCarts(t); n != 0 {
		t.Fatalf("carts created: %d", n)
	}
	if n := f.countItems(t); n != 0 {
		t.Fatalf("items created: %d", n)
	}

	_, found, err := f.svc.GetCartForUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected no cart")
	}

	cart, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d", cart.Items[0].Quantity)
	}
}

func TestAddItemToCartRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("anonymous caller -> unauthenticated", func(t *testing.T) {
		_, err := f.svc.AddItemToCart(ctx, identity.Caller{}, 1, 1)
		if !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("zero quantity and product -> both fields reported", func(t *testing.T) {
		_, err := f.svc.AddItemToCart(ctx, alice, 0, 0)
		verr, ok := apperr.AsValidation(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !verr.Has("quantity") || !verr.Has("product_id") {
			t.Fatalf("missing fields: %v", verr.Fields)
		}
	})

	t.Run("negative quantity -> invalid", func(t *testing.T) {
		p := f.product(t, "Chair", 10)
		_, err := f.svc.AddItemToCart(ctx, alice, p.ID, -3)
		if verr, ok := apperr.AsValidation(err); !ok || !verr.Has("quantity") {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("unknown product -> not found", func(t *testing.T) {
		_, err := f.svc.AddItemToCart(ctx, alice, 4242, 1)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("got %v", err)
		}
	})

	if n := f.countCarts(t); n != 0 {
		t.Fatalf("carts created: %d", n)
	}
}

type staleFinder struct{}

func (staleFinder) FindByID(_ context.Context, id uint) (*models.Product, error) {
	return &models.Product{ID: id, Name: "Ghost", Stock: 10}, nil
}

func TestAddItemToCartRollsBackOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewService(staleFinder{}, repositories.NewCartRepository(f.db), WithClock(f.clock.Now))

	// The product row does not exist, so the item insert violates its foreign key
	// after the cart row has already been written in the same transaction.
	if _, err := svc.AddItemToCart(context.Background(), alice, 999, 1); err == nil {
		t.Fatal("expected error")
	}
	if n := f.countCarts(t); n != 0 {
		t.Fatalf("cart survived rollback: %d", n)
	}
	if n := f.countItems(t); n != 0 {
		t.Fatalf("item survived rollback: %d", n)
	}
}

func TestAddItemToCartRefreshesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 10)

	first, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.clock.Now().Add(DefaultCartTTL); !first.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %s, want %s", first.ExpiresAt, want)
	}

	f.clock.Advance(20 * time.Hour)
	second, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected cart %d to be reused, got %d", first.ID, second.ID)
	}
	if want := f.clock.Now().Add(DefaultCartTTL); !second.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %s, want %s", second.ExpiresAt, want)
	}
	if !second.UpdatedAt.Equal(f.clock.Now()) {
		t.Fatalf("updated_at = %s, want %s", second.UpdatedAt, f.clock.Now())
	}
}

func TestAddItemToCartStartsNewCartAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 10)

	first, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(DefaultCartTTL + time.Minute)
	if _, found, err := f.svc.GetCartForUser(ctx, alice); err != nil || found {
		t.Fatalf("expired cart still active: found=%v err=%v", found, err)
	}

	second, err := f.svc.AddItemToCart(ctx, alice, p.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("expired cart was reused")
	}
	if len(second.Items) != 1 || second.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", second.Items)
	}
}

func TestAddItemToCartConcurrentAddsSum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 100)

	if _, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := f.svc.AddItemToCart(ctx, alice, p.ID, 2)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add: %v", err)
	}

	cart, found, err := f.svc.GetCartForUser(ctx, alice)
	if err != nil || !found {
		t.Fatalf("get cart: found=%v err=%v", found, err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one merged row, got %d", len(cart.Items))
	}
	if got, want := cart.Items[0].Quantity, 1+workers*2; got != want {
		t.Fatalf("quantity = %d, want %d", got, want)
	}
}

func TestRemoveItemFromCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 5)

	cart, err := f.svc.AddItemToCart(ctx, alice, p.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	itemID := cart.Items[0].ID

	t.Run("anonymous caller -> unauthenticated", func(t *testing.T) {
		if err := f.svc.RemoveItemFromCart(ctx, identity.Caller{}, itemID); !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("other user -> forbidden, item intact", func(t *testing.T) {
		err := f.svc.RemoveItemFromCart(ctx, bob, itemID)
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if n := f.countItems(t); n != 1 {
			t.Fatalf("item count = %d", n)
		}
	})

	t.Run("owner -> deleted", func(t *testing.T) {
		if err := f.svc.RemoveItemFromCart(ctx, alice, itemID); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if n := f.countItems(t); n != 0 {
			t.Fatalf("item count = %d", n)
		}
		got, found, err := f.svc.GetCartForUser(ctx, alice)
		if err != nil || !found {
			t.Fatalf("cart should survive item removal: found=%v err=%v", found, err)
		}
		if len(got.Items) != 0 {
			t.Fatalf("items = %+v", got.Items)
		}
	})

	t.Run("already removed -> not found", func(t *testing.T) {
		if err := f.svc.RemoveItemFromCart(ctx, alice, itemID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	var stock int
	if err := f.db.Model(&models.Product{}).Where("id = ?", p.ID).Pluck("stock", &stock).Error; err != nil {
		t.Fatal(err)
	}
	if stock != 5 {
		t.Fatalf("stock changed to %d", stock)
	}
}

func TestGetCartForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 5)

	if _, found, err := f.svc.GetCartForUser(ctx, alice); err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if _, _, err := f.svc.GetCartForUser(ctx, identity.Caller{}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("got %v", err)
	}

	if _, err := f.svc.AddItemToCart(ctx, alice, p.ID, 3); err != nil {
		t.Fatal(err)
	}

	cart, found, err := f.svc.GetCartForUser(ctx, alice)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 || cart.Items[0].Product.ID != p.ID {
		t.Fatalf("unexpected cart: %+v", cart)
	}

	if _, found, err := f.svc.GetCartForUser(ctx, bob); err != nil || found {
		t.Fatalf("bob sees a cart: found=%v err=%v", found, err)
	}
}

func TestClearExpiredCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 50)

	stale, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(DefaultCartTTL + time.Hour)
	fresh, err := f.svc.AddItemToCart(ctx, bob, p.ID, 4)
	if err != nil {
		t.Fatal(err)
	}

	n, err := f.svc.ClearExpiredCarts(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleared = %d, want 1", n)
	}

	var deleted models.Cart
	if err := f.db.Unscoped().First(&deleted, stale.ID).Error; err != nil {
		t.Fatalf("stale cart row: %v", err)
	}
	if !deleted.DeletedAt.Valid {
		t.Fatal("stale cart was not soft-deleted")
	}
	var staleItems int64
	f.db.Model(&models.CartItem{}).Where("cart_id = ?", stale.ID).Count(&staleItems)
	if staleItems != 0 {
		t.Fatalf("stale items left: %d", staleItems)
	}

	kept, found, err := f.svc.GetCartForUser(ctx, bob)
	if err != nil || !found || kept.ID != fresh.ID || len(kept.Items) != 1 {
		t.Fatalf("fresh cart affected: found=%v err=%v cart=%+v", found, err, kept)
	}

	n, err = f.svc.ClearExpiredCarts(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}

func TestClearExpiredCartsKeepsRecentlyTouchedCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 50)

	if _, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(23 * time.Hour)
	if _, err := f.svc.AddItemToCart(ctx, alice, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Hour)

	n, err := f.svc.ClearExpiredCarts(ctx)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestCustomTTLDrivesExpiryAndSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 50)

	svc := NewService(
		repositories.NewProductRepository(f.db),
		repositories.NewCartRepository(f.db),
		WithClock(f.clock.Now),
		WithTTL(2*time.Hour),
	)

	c, err := svc.AddItemToCart(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.clock.Now().Add(2 * time.Hour); !c.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %s, want %s", c.ExpiresAt, want)
	}

	f.clock.Advance(time.Hour)
	if n, err := svc.ClearExpiredCarts(ctx); err != nil || n != 0 {
		t.Fatalf("early sweep: n=%d err=%v", n, err)
	}

	f.clock.Advance(2 * time.Hour)
	if n, err := svc.ClearExpiredCarts(ctx); err != nil || n != 1 {
		t.Fatalf("sweep: n=%d err=%v", n, err)
	}
}
