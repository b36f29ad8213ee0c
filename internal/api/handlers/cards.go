package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokebinder/internal/models"
	"github.com/codyseavey/pokebinder/internal/pricing"
	"github.com/codyseavey/pokebinder/internal/services"
)

type CardHandler struct {
	catalog services.Catalog
}

func NewCardHandler(catalog services.Catalog) *CardHandler {
	return &CardHandler{catalog: catalog}
}

// GetCard previews a catalog card with the variant and price it would be added at.
// ?reverse_holo=true previews the reverse holo price.
func (h *CardHandler) GetCard(c *gin.Context) {
	quote, err := h.catalog.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	preview := models.CardPreview{Card: *quote}
	sel, err := pricing.SelectPrice(quote.Prices, c.Query("reverse_holo") == "true")
	switch {
	case err == nil:
		preview.Variant = sel.Variant
		preview.Price = sel.Price
		preview.HasPrice = true
	case !errors.Is(err, pricing.ErrNoPriceAvailable):
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
