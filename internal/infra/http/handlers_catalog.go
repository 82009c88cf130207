package http

import (
	"net/http"
	"strconv"
	"strings"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type productRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Description string   `json:"description" binding:"max=1000"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Category    string   `json:"category" binding:"required,oneof=electronics clothing home books other"`
	SKU         string   `json:"sku" binding:"max=64"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
}

type productPatchRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=1000"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Category    *string  `json:"category" binding:"omitempty,oneof=electronics clothing home books other"`
	SKU         *string  `json:"sku" binding:"omitempty,max=64"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Active      *bool    `json:"active"`
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	SKU         string  `json:"sku,omitempty"`
	Stock       int     `json:"stock"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type inventoryUpdateRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required,gte=0"`
	Operation string `json:"operation" binding:"required,oneof=add subtract set"`
}

type inventoryResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	Location    string `json:"location,omitempty"`
	LastUpdated string `json:"lastUpdated"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    string(p.Category),
		SKU:         p.SKU,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toInventoryResponses(items []domain.InventoryItem) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toInventoryResponse(item))
	}
	return out
}

func toInventoryResponse(item domain.InventoryItem) inventoryResponse {
	return inventoryResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		Location:    item.Location,
		LastUpdated: formatTime(item.LastUpdated),
	}
}

func (s *Server) handleListProducts(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	products, total, err := s.products.List(c.Request.Context(), page)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items: toProductResponses(products),
		Count: len(products),
		Total: total,
		Page:  page.Page,
		Pages: page.Pages(total),
	})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	product, err := s.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleSearchProducts(c *gin.Context) {
	products, err := s.products.Search(c.Request.Context(), c.Param("query"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items: toProductResponses(products),
		Count: len(products),
		Total: int64(len(products)),
	})
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	in := usecase.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Category:    domain.Category(req.Category),
		SKU:         req.SKU,
	}
	if req.Stock != nil {
		in.Stock = *req.Stock
	}
	product, err := s.products.Create(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	var req productPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := usecase.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         req.SKU,
		Stock:       req.Stock,
		Active:      req.Active,
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		patch.Category = &category
	}
	product, err := s.products.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (s *Server) handleListInventory(c *gin.Context) {
	items, err := s.inventory.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items: toInventoryResponses(items),
		Count: len(items),
		Total: int64(len(items)),
	})
}

func (s *Server) handleUpdateInventory(c *gin.Context) {
	var req inventoryUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := s.inventory.Update(c.Request.Context(), usecase.InventoryUpdate{
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
		Operation: domain.InventoryOperation(req.Operation),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(item))
}

func (s *Server) handleLowStock(c *gin.Context) {
	threshold := usecase.DefaultLowStockThreshold
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "threshold must be a positive integer")
			return
		}
		threshold = v
	}
	items, err := s.inventory.LowStock(c.Request.Context(), threshold)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threshold": threshold,
		"items":     toInventoryResponses(items),
		"count":     len(items),
	})
}

func (s *Server) handleDeleteInventory(c *gin.Context) {
	if err := s.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "inventory item deleted"})
}
