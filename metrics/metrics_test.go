package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CartOperation("add_item", "ok")
	m.CartOperation("add_item", "ok")
	m.CartOperation("add_item", "insufficient_stock")
	m.ExpiredCartsCleared(3)
	m.ExpiredCartsCleared(0)
	m.Notification("product.created", "publish_failed")

	if got := testutil.ToFloat64(m.cartOperations.WithLabelValues("add_item", "ok")); got != 2 {
		t.Fatalf("add_item ok = %v", got)
	}
	if got := testutil.ToFloat64(m.expiredCartsCleared); got != 3 {
		t.Fatalf("expired carts = %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("product.created", "publish_failed")); got != 1 {
		t.Fatalf("notifications = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CartOperation("add_item", "ok")
	m.ExpiredCartsCleared(1)
	m.Notification("e", "ok")
	m.HTTPRequest("GET", "/cart", "200", 0.1)
}
