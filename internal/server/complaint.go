package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	complaintdomain "github.com/smallbiznis/newsexpress/internal/complaint/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
)

type submitComplaintRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type resolveComplaintRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

type complaintStatusRequest struct {
	Status complaintdomain.Status `json:"status" binding:"required"`
}

func (s *Server) SubmitComplaint(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok || p.Role != principal.RoleCustomer {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req submitComplaintRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.complaintSvc.Submit(c.Request.Context(), complaintdomain.SubmitComplaintRequest{
		CustomerID:  p.CustomerID,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListComplaints(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query complaintdomain.ListComplaintRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.CustomerID = customerFilter(p, query.CustomerID)

	resp, err := s.complaintSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Complaints, "page_info": resp.PageInfo})
}

func (s *Server) ResolveComplaint(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req resolveComplaintRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.complaintSvc.Resolve(c.Request.Context(), complaintdomain.ResolveComplaintRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		ResolverID:      p.EmployeeID,
		ResolutionNotes: strings.TrimSpace(req.ResolutionNotes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateComplaintStatus(c *gin.Context) {
	var req complaintStatusRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.complaintSvc.UpdateStatus(c.Request.Context(), complaintdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isComplaintValidationError(err error) bool {
	switch {
	case errors.Is(err, complaintdomain.ErrInvalidID),
		errors.Is(err, complaintdomain.ErrInvalidCustomerID),
		errors.Is(err, complaintdomain.ErrInvalidSubject),
		errors.Is(err, complaintdomain.ErrInvalidDescription),
		errors.Is(err, complaintdomain.ErrInvalidStatus),
		errors.Is(err, complaintdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
