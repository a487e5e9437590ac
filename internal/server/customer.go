package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/newsexpress/internal/customer/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
)

func (s *Server) ListCustomers(c *gin.Context) {
	var query customerdomain.ListCustomerRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.Query = strings.TrimSpace(query.Query)

	resp, err := s.customerSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Customers, "page_info": resp.PageInfo})
}

func (s *Server) GetCustomer(c *gin.Context) {
	resp, err := s.customerSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

// UpdateCustomer changes contact details. A customer may only edit their own
// record.
func (s *Server) UpdateCustomer(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if p.Role == principal.RoleCustomer && id != p.CustomerID.String() {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req updateCustomerRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:      id,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetCustomerActive(c *gin.Context) {
	var req setActiveRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCustomerValidationError(err error) bool {
	switch {
	case errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, customerdomain.ErrInvalidAddress),
		errors.Is(err, customerdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
