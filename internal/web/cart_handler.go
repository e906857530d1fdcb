package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/cart"
	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts   cartstore.Store
	catalog *catalog.Catalog
}

func NewCartHandler(carts cartstore.Store, cat *catalog.Catalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: cat}
}

type addItemRequestDTO struct {
	ItemID string `json:"item_id"`
}

type cartLineDTO struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type cartViewDTO struct {
	Lines     []cartLineDTO `json:"lines"`
	ItemCount int           `json:"item_count"`
	Total     string        `json:"total"`
	Message   string        `json:"message,omitempty"`
}

// Get renders the priced cart. Entries whose item has left the catalog
// show up in the count but price to nothing.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	c, err := h.carts.Load(r.Context(), p)
	if err != nil {
		handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.view(c, ""))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var req addItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	itemID, err := cart.ParseItemID(req.ItemID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	c, err := h.carts.Load(r.Context(), p)
	if err != nil {
		handleStoreError(w, err)
		return
	}

	c = c.Add(itemID)
	if err := h.carts.Save(r.Context(), p, c); err != nil {
		handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.view(c, "item added to cart"))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	itemID, err := cart.ParseItemID(chi.URLParam(r, "item_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	c, err := h.carts.Load(r.Context(), p)
	if err != nil {
		handleStoreError(w, err)
		return
	}

	c, removed := c.Remove(itemID)
	if !removed {
		// Removing an id that is not in the cart is a benign no-op,
		// never an error page.
		respondJSON(w, http.StatusOK, h.view(c, "no such item in cart"))
		return
	}

	if err := h.carts.Save(r.Context(), p, c); err != nil {
		handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.view(c, "item removed from cart"))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	c, err := h.carts.Load(r.Context(), p)
	if err != nil {
		handleStoreError(w, err)
		return
	}

	c, cleared := c.Clear()
	if !cleared {
		respondJSON(w, http.StatusOK, h.view(c, "cart is already empty"))
		return
	}

	if err := h.carts.Save(r.Context(), p, c); err != nil {
		handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.view(c, "all items removed from cart"))
}

func (h *CartHandler) view(c cart.Cart, message string) cartViewDTO {
	lines, total := cart.Price(c, h.catalog)

	out := cartViewDTO{
		Lines:     make([]cartLineDTO, len(lines)),
		ItemCount: c.ItemCount(),
		Total:     total.StringFixed(2),
		Message:   message,
	}
	for i, line := range lines {
		name := ""
		if item, ok := h.catalog.Lookup(line.ItemID); ok {
			name = item.Name
		}
		out.Lines[i] = cartLineDTO{
			ItemID:    line.ItemID,
			Name:      name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		}
	}
	return out
}

func handleStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, cartstore.ErrPersistence) {
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "cart storage is temporarily unavailable")
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
