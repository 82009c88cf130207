package http

import (
	"net/http"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type userPatchRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Address  *string `json:"address" binding:"omitempty,max=500"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin customer"`
	IsActive *bool   `json:"isActive"`
}

func toAccountResponses(accounts []domain.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func (s *Server) handleListUsers(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	accounts, total, err := s.accounts.List(c.Request.Context(), page)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Items: toAccountResponses(accounts),
		Count: len(accounts),
		Total: total,
		Page:  page.Page,
		Pages: page.Pages(total),
	})
}

func (s *Server) handleGetUser(c *gin.Context) {
	account, err := s.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	auth, ok := authContext(c)
	if !ok {
		return
	}
	var req userPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := usecase.AccountPatch{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	account, err := s.accounts.Update(c.Request.Context(), auth, c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.accounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (s *Server) handleListUserOrders(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	orders, total, err := s.orders.ListForUser(c.Request.Context(), c.Param("id"), page)
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

func (s *Server) handleRevokeTokens(c *gin.Context) {
	at, err := s.accounts.RevokeTokens(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    c.Param("id"),
		"revokedAt": formatTime(at),
	})
}
