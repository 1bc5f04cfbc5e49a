package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/models"
	"gorm.io/gorm"
)

// UserFilter drives the paginated user search.
type UserFilter struct {
	Keyword       string
	OrderBy       string
	OrderByColumn string
	Page          int
	PerPage       int
}

var userSortColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"created_at": true,
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Transaction runs fn with user and token repositories bound to a single database
// transaction. Any error returned by fn rolls both back.
func (r *UserRepository) Transaction(ctx context.Context, fn func(users *UserRepository, tokens *TokenRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepository{db: tx}, &TokenRepository{db: tx})
	})
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

// EmailTaken reports whether any user row, including soft-deleted ones, holds email.
// The unique index covers deleted rows too.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

// Paginate returns one page of users matching the filter and the total match count.
func (r *UserRepository) Paginate(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		if id, err := strconv.ParseUint(kw, 10, 64); err == nil {
			query = query.Where("id = ? OR LOWER(name) LIKE ? OR LOWER(email) LIKE ?", id, like, like)
		} else {
			query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	if userSortColumns[f.OrderByColumn] {
		dir := strings.ToLower(f.OrderBy)
		if dir != "asc" && dir != "desc" {
			dir = "asc"
		}
		query = query.Order(f.OrderByColumn + " " + dir)
	}
	query = query.Order("id")

	var users []models.User
	offset := (f.Page - 1) * f.PerPage
	if err := query.Offset(offset).Limit(f.PerPage).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *models.AccessToken) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(t).Error; err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// Active returns the token row when it exists and has not expired at now.
func (r *TokenRepository) Active(ctx context.Context, id string, now time.Time) (*models.AccessToken, error) {
	var t models.AccessToken
	err := r.db.WithContext(ctx).Where("id = ? AND expires_at > ?", id, now).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("access token: %w", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AccessToken{}).Where("id = ?", id).Update("last_used_at", at).Error
}

// Delete revokes a token. Deleting an unknown token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AccessToken{}).Error; err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}
