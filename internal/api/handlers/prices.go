package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokebinder/internal/services"
)

type PriceHandler struct {
	collections *services.CollectionService
	priceWorker *services.PriceWorker
}

func NewPriceHandler(collections *services.CollectionService, priceWorker *services.PriceWorker) *PriceHandler {
	return &PriceHandler{
		collections: collections,
		priceWorker: priceWorker,
	}
}

// GetPriceStatus returns the scheduled refresh status
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.priceWorker.GetStatus())
}

// RefreshCardPrice re-quotes a single owned card
func (h *PriceHandler) RefreshCardPrice(c *gin.Context) {
	card, err := h.collections.RefreshPrice(c.Request.Context(), c.Param("user"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// RefreshPrices re-quotes every card in the user's collection
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	summary, err := h.collections.RefreshAll(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
