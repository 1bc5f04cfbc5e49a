package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/database/dbtest"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/shopspring/decimal"
)

func TestProductRepository(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := &models.Product{Name: "Teapot", Price: decimal.RequireFromString("12.34"), Stock: 2}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Teapot" || !got.Price.Equal(decimal.RequireFromString("12.34")) || got.Stock != 2 {
		t.Fatalf("unexpected product: %+v", got)
	}

	if _, err := repo.FindByID(ctx, p.ID+100); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := db.Delete(&models.Product{}, p.ID).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindByID(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("soft-deleted product visible: %v", err)
	}
	list, err := repo.List(ctx, ProductFilter{})
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v err=%v", list, err)
	}
}
