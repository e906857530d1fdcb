package web

import (
	"context"
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/orders"
)

type OrderLister interface {
	ListByPrincipal(ctx context.Context, principal string) ([]*orders.Order, error)
}

type OrdersHandler struct {
	orders OrderLister
}

func NewOrdersHandler(lister OrderLister) *OrdersHandler {
	return &OrdersHandler{orders: lister}
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	list, err := h.orders.ListByPrincipal(r.Context(), p.Key())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": list})
}
