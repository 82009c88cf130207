package http

import (
	"net/http"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=50"`
	Phone   string `json:"phone" binding:"max=32"`
	Address string `json:"address" binding:"max=500"`
}

type accountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
	IssuedAt  string `json:"issuedAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func toAccountResponse(a domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      string(a.Role),
		IsActive:  a.IsActive,
		Phone:     a.Phone,
		Address:   a.Address,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}

func (s *Server) handleAuthInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "auth routes",
		"endpoints": []string{"POST /api/auth/register", "POST /api/auth/login"},
	})
}

// handleRegister needs only a verified identity; the account it creates is
// what later requests are loaded against.
func (s *Server) handleRegister(c *gin.Context) {
	if s.authInitErr != nil || s.pipeline == nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return
	}
	claim, err := s.pipeline.Identify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		s.deny(c, "auth:register", err)
		return
	}
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := s.accounts.Register(c.Request.Context(), claim, usecase.RegisterInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toAccountResponse(account)})
}

func (s *Server) handleLogin(c *gin.Context) {
	auth, ok := authContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sessionResponse{
		ID:        auth.SubjectID,
		Email:     auth.Email,
		Name:      auth.Name,
		Role:      string(auth.Role),
		IsActive:  auth.IsActive,
		IssuedAt:  formatTime(auth.IssuedAt),
		ExpiresAt: formatTime(auth.ExpiresAt),
	}})
}
