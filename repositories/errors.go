package repositories

import (
	"errors"

	"github.com/junaidrashid-git/shopcart-api/apperr"
	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound onto apperr.ErrNotFound and leaves other errors alone.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}
