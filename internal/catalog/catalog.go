// Package catalog holds the immutable list of sellable items, loaded once
// at startup from a CSV source. A failed load is fatal; the process must
// not serve traffic with a partial catalog.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Item is one sellable product. PaymentRef is the opaque token that
// identifies the item to the hosted payment provider.
type Item struct {
	ID         int64
	Name       string
	Price      decimal.Decimal
	Image      string
	PaymentRef string
}

// Catalog is read-only after construction.
type Catalog struct {
	items []Item
}

// columns of the catalog CSV source, in order.
var columns = []string{"id", "item", "price", "image", "payment_reference"}

// Load reads the catalog from a CSV file with a header row. Any malformed
// row fails the whole load.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog source: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses CSV catalog data from r.
func Read(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	for i, want := range columns {
		if header[i] != want {
			return nil, fmt.Errorf("catalog header: column %d is %q, want %q", i, header[i], want)
		}
	}

	var items []Item
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}

		item, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		items = append(items, item)
	}

	return New(items)
}

// New builds a catalog from already parsed items, enforcing id uniqueness
// and non-negative prices.
func New(items []Item) (*Catalog, error) {
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("catalog item %q: invalid id %d", item.Name, item.ID)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("catalog: duplicate item id %d", item.ID)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("catalog item %d: negative price %s", item.ID, item.Price)
		}
		seen[item.ID] = true
	}
	return &Catalog{items: items}, nil
}

func parseRow(record []string) (Item, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("bad id %q: %w", record[0], err)
	}
	if record[1] == "" {
		return Item{}, fmt.Errorf("item %d: missing name", id)
	}
	price, err := decimal.NewFromString(record[2])
	if err != nil {
		return Item{}, fmt.Errorf("item %d: bad price %q: %w", id, record[2], err)
	}
	if record[4] == "" {
		return Item{}, fmt.Errorf("item %d: missing payment reference", id)
	}

	return Item{
		ID:         id,
		Name:       record[1],
		Price:      price,
		Image:      record[3],
		PaymentRef: record[4],
	}, nil
}

// Lookup finds an item by id.
func (c *Catalog) Lookup(id int64) (Item, bool) {
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Items returns the catalog in load order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}
