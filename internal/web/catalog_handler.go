package web

import (
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/catalog"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

type catalogItemDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Image string `json:"image"`
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Items()
	out := make([]catalogItemDTO, len(items))
	for i, item := range items {
		out[i] = catalogItemDTO{
			ID:    item.ID,
			Name:  item.Name,
			Price: item.Price.StringFixed(2),
			Image: item.Image,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}
