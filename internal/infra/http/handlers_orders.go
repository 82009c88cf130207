package http

import (
	"net/http"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type orderItemRequest struct {
	ProductID string   `json:"productId" binding:"required"`
	Quantity  int      `json:"quantity" binding:"required,min=1"`
	Price     *float64 `json:"price" binding:"required,gte=0"`
}

type orderRequest struct {
	Products        []orderItemRequest `json:"products" binding:"required,min=1,dive"`
	TotalAmount     *float64           `json:"totalAmount" binding:"required,gte=0"`
	ShippingAddress string             `json:"shippingAddress" binding:"max=500"`
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Products        []orderItemResponse `json:"products"`
	TotalAmount     float64             `json:"totalAmount"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shippingAddress,omitempty"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Products:        items,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func (s *Server) handleListOrders(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	orders, total, err := s.orders.List(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items: toOrderResponses(orders),
		Count: len(orders),
		Total: total,
		Page:  page.Page,
		Pages: page.Pages(total),
	})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	order, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	auth, ok := authContext(c)
	if !ok {
		return
	}
	var req orderRequest
	if !bindJSON(c, &req) {
		return
	}
	items := make([]domain.OrderItem, 0, len(req.Products))
	for _, item := range req.Products {
		items = append(items, domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: *item.Price})
	}
	order, err := s.orders.Create(c.Request.Context(), usecase.OrderInput{
		UserID:          auth.SubjectID,
		Items:           items,
		TotalAmount:     *req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := s.orders.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleDeleteOrder(c *gin.Context) {
	if err := s.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}
