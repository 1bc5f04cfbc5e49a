package notifications

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event is anything that can travel on the bus.
type Event interface {
	EventName() string
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, e Event) error

const EventProductCreated = "product.created"

// ProductCreated is published after a product has been persisted.
type ProductCreated struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
}

func (ProductCreated) EventName() string { return EventProductCreated }
