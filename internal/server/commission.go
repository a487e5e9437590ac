package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/newsexpress/internal/commission/domain"
)

type generateCommissionsRequest struct {
	PeriodStart string `json:"period_start" binding:"required,date"`
	PeriodEnd   string `json:"period_end" binding:"required,date"`
}

type commissionStatusRequest struct {
	Status commissiondomain.Status `json:"status" binding:"required"`
}

func (s *Server) GenerateCommissions(c *gin.Context) {
	var req generateCommissionsRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseDate("period_start", req.PeriodStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDate("period_end", req.PeriodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.Generate(c.Request.Context(), commissiondomain.GenerateRequest{
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissions(c *gin.Context) {
	var query commissiondomain.ListCommissionRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Commissions, "page_info": resp.PageInfo})
}

func (s *Server) UpdateCommissionStatus(c *gin.Context) {
	var req commissionStatusRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.UpdateStatus(c.Request.Context(), commissiondomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCommissionValidationError(err error) bool {
	switch {
	case errors.Is(err, commissiondomain.ErrInvalidID),
		errors.Is(err, commissiondomain.ErrInvalidDeliveryPersonID),
		errors.Is(err, commissiondomain.ErrInvalidPeriod),
		errors.Is(err, commissiondomain.ErrInvalidStatus),
		errors.Is(err, commissiondomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
