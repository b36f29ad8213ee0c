package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokebinder/internal/models"
	"github.com/codyseavey/pokebinder/internal/query"
	"github.com/codyseavey/pokebinder/internal/services"
)

type CollectionHandler struct {
	collections *services.CollectionService
	snapshots   *services.SnapshotService
}

func NewCollectionHandler(collections *services.CollectionService, snapshots *services.SnapshotService) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		snapshots:   snapshots,
	}
}

// Maximum quantity allowed per owned card
const maxQuantity = 9999

// validSortKey rejects unknown ?sort= keys with a 400 listing the known ones.
// An empty key is valid.
func validSortKey(c *gin.Context, key string) bool {
	if key == "" || query.IsSortKey(key) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort key", "sort_keys": query.SortKeys()})
	return false
}

// GetCollection returns every owned card, sorted by ?sort= and ?dir=
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	sortKey := c.Query("sort")
	if !validSortKey(c, sortKey) {
		return
	}

	resp, err := h.collections.List(c.Request.Context(), c.Param("user"), sortKey, query.ParseDirection(c.Query("dir")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CollectionHandler) GetSetGroups(c *gin.Context) {
	groups, err := h.collections.SetGroups(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *CollectionHandler) GetPrizeBinder(c *gin.Context) {
	view, err := h.collections.PrizeView(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CollectionHandler) GetEliteBinder(c *gin.Context) {
	view, err := h.collections.EliteView(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SearchCollection filters the collection. List filters accept repeated keys or comma lists.
func (h *CollectionHandler) SearchCollection(c *gin.Context) {
	criteria, err := query.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validSortKey(c, criteria.SortKey) {
		return
	}

	resp, err := h.collections.Search(c.Request.Context(), c.Param("user"), criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.collections.AddCard(c.Request.Context(), c.Param("user"), req.CardID, req.ReverseHolo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *CollectionHandler) GetCollectionItem(c *gin.Context) {
	card, err := h.collections.GetCard(c.Request.Context(), c.Param("user"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CollectionHandler) UpdateCollectionItem(c *gin.Context) {
	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity != nil && *req.Quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
		return
	}

	card, err := h.collections.EditCard(c.Request.Context(), c.Param("user"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	if err := h.collections.RemoveCard(c.Request.Context(), c.Param("user"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *CollectionHandler) AssignBinder(c *gin.Context) {
	var req models.AssignBinderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coll, err := h.collections.AssignBinder(c.Request.Context(), c.Param("user"), c.Param("id"), req.Binder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coll)
}

// GetValueHistory returns daily value snapshots for ?period= (week, month, 3month, year, all)
func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	history, err := h.snapshots.GetHistory(c.Request.Context(), c.Param("user"), c.DefaultQuery("period", "month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
