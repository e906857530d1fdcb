package cart

import (
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/shopspring/decimal"
)

// CheckoutLine is one priced cart entry, produced fresh on every pricing
// request and handed to the payment boundary as {payment_reference, quantity}.
type CheckoutLine struct {
	ItemID     int64
	UnitPrice  decimal.Decimal
	PaymentRef string
	Quantity   int
}

func (l CheckoutLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Price joins the cart entries against the catalog. Entries whose id has no
// catalog match are skipped: they emit no line and contribute nothing to the
// total. Line order follows cart entry order.
func Price(c Cart, cat *catalog.Catalog) ([]CheckoutLine, decimal.Decimal) {
	lines := make([]CheckoutLine, 0, len(c.entries))
	total := decimal.Zero
	for _, e := range c.entries {
		item, ok := cat.Lookup(e.ItemID)
		if !ok {
			continue
		}
		line := CheckoutLine{
			ItemID:     e.ItemID,
			UnitPrice:  item.Price,
			PaymentRef: item.PaymentRef,
			Quantity:   e.Quantity,
		}
		lines = append(lines, line)
		total = total.Add(line.Subtotal())
	}
	return lines, total
}
