package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const productCreatedSubject = "New Product Created"

// Mailer turns ProductCreated events into a notification email for the management inbox.
// Delivery is retried with exponential backoff, so a recipient may see duplicates.
type Mailer struct {
	Sender   Sender
	From     string
	To       string
	Attempts int
	Backoff  time.Duration
	Log      *zap.Logger
}

// Handle is a bus Handler.
func (m *Mailer) Handle(ctx context.Context, e Event) error {
	created, ok := e.(ProductCreated)
	if !ok {
		return fmt.Errorf("mailer: unexpected event %q", e.EventName())
	}

	attempts := m.Attempts
	if attempts < 1 {
		attempts = 1
	}
	body := productCreatedBody(created)

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := m.Backoff << (i - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("mailer: %w (last error: %v)", ctx.Err(), err)
			}
		}
		if err = m.Sender.Send(ctx, m.From, m.To, productCreatedSubject, body); err == nil {
			return nil
		}
		if m.Log != nil {
			m.Log.Warn("mail_attempt_failed",
				zap.Uint("product_id", created.ProductID),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
		}
	}
	return fmt.Errorf("mailer: product %d: %w", created.ProductID, err)
}

func productCreatedBody(p ProductCreated) string {
	return fmt.Sprintf(
		"A new product has been created.\n\nID: %d\nName: %s\nPrice: %s\nStock: %d\nCreated at: %s\n",
		p.ProductID, p.Name, p.Price.StringFixed(2), p.Stock, p.CreatedAt.Format(time.RFC3339),
	)
}
