package checkout

import (
	"time"

	"github.com/Julien-B-py/online-shop/internal/cart"
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/shopspring/decimal"
)

type SnapshotItem struct {
	ItemID     int64           `json:"item_id"`
	Name       string          `json:"name"`
	PaymentRef string          `json:"payment_reference"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Snapshot captures the priced cart at checkout time. It is what the
// session row stores and what the completed-order event carries, so later
// catalog changes cannot shift what was paid for.
type Snapshot struct {
	Items       []SnapshotItem  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	CapturedAt  time.Time       `json:"captured_at"`
}

// buildSnapshot prices the cart against the catalog. Entries without a
// catalog match are dropped here, same as in cart.Price.
func buildSnapshot(c cart.Cart, cat *catalog.Catalog) *Snapshot {
	lines, total := cart.Price(c, cat)

	snapshot := &Snapshot{
		Items:       make([]SnapshotItem, 0, len(lines)),
		TotalAmount: total,
		Currency:    "USD",
		CapturedAt:  time.Now(),
	}

	for _, line := range lines {
		name := ""
		if item, ok := cat.Lookup(line.ItemID); ok {
			name = item.Name
		}
		snapshot.Items = append(snapshot.Items, SnapshotItem{
			ItemID:     line.ItemID,
			Name:       name,
			PaymentRef: line.PaymentRef,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   line.Subtotal(),
		})
	}

	return snapshot
}
