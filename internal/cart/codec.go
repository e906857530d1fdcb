package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialize encodes the cart as a compact JSON object mapping string item
// ids to quantities, keys in entry order. This is the persistence format
// for both the session store and the account cart snapshot column.
func (c Cart) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatInt(e.ItemID, 10))
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(e.Quantity))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Deserialize decodes data produced by Serialize. Key order in the source
// text becomes entry order, so a round trip preserves the cart exactly.
// Ids that do not parse, duplicate keys and quantities below 1 make the
// whole payload invalid.
func Deserialize(data []byte) (Cart, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Cart{}, fmt.Errorf("decode cart: expected object, got %v", tok)
	}

	var c Cart
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Cart{}, fmt.Errorf("decode cart: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Cart{}, fmt.Errorf("decode cart: bad key %v", keyTok)
		}
		id, err := ParseItemID(key)
		if err != nil {
			return Cart{}, fmt.Errorf("decode cart: item id %q: %w", key, err)
		}
		if c.Quantity(id) != 0 {
			return Cart{}, fmt.Errorf("decode cart: duplicate item id %d", id)
		}

		valTok, err := dec.Token()
		if err != nil {
			return Cart{}, fmt.Errorf("decode cart: %w", err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return Cart{}, fmt.Errorf("decode cart: bad quantity for item %d", id)
		}
		qty, err := strconv.Atoi(num.String())
		if err != nil || qty < 1 {
			return Cart{}, fmt.Errorf("decode cart: quantity %q for item %d", num, id)
		}

		c.entries = append(c.entries, Entry{ItemID: id, Quantity: qty})
	}

	if _, err := dec.Token(); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}
