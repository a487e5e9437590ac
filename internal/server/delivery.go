package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
)

type createDeliveryRequest struct {
	SubscriptionID   string `json:"subscription_id" binding:"required"`
	DeliveryPersonID string `json:"delivery_person_id"`
	DeliveryDate     string `json:"delivery_date" binding:"required,date"`
	Notes            string `json:"notes"`
}

type bulkDeliveryRequest struct {
	SubscriptionIDs  []string `json:"subscription_ids" binding:"required,min=1"`
	DeliveryPersonID string   `json:"delivery_person_id"`
	DeliveryDate     string   `json:"delivery_date" binding:"required,date"`
}

type assignDeliveryRequest struct {
	DeliveryPersonID string `json:"delivery_person_id" binding:"required"`
	DeliveryDate     string `json:"delivery_date" binding:"omitempty,date"`
}

type deliveryStatusRequest struct {
	Status deliverydomain.Status `json:"status" binding:"required"`
	Notes  string                `json:"notes"`
}

type reportIssueRequest struct {
	IssueType   deliverydomain.IssueType `json:"issue_type" binding:"required"`
	Description string                   `json:"description" binding:"required"`
}

type issueStatusRequest struct {
	Status          deliverydomain.IssueStatus `json:"status" binding:"required"`
	ResolutionNotes string                     `json:"resolution_notes"`
}

type listDeliveriesQuery struct {
	PageToken        string                `form:"page_token"`
	PageSize         int                   `form:"page_size"`
	DeliveryPersonID string                `form:"delivery_person_id"`
	Date             string                `form:"date" binding:"omitempty,date"`
	Status           deliverydomain.Status `form:"status"`
	Unassigned       bool                  `form:"unassigned"`
}

func (s *Server) CreateDelivery(c *gin.Context) {
	var req createDeliveryRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.Create(c.Request.Context(), deliverydomain.CreateDeliveryRequest{
		SubscriptionID:   strings.TrimSpace(req.SubscriptionID),
		DeliveryPersonID: strings.TrimSpace(req.DeliveryPersonID),
		DeliveryDate:     date,
		Notes:            strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BulkCreateDeliveries(c *gin.Context) {
	var req bulkDeliveryRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.BulkCreate(c.Request.Context(), deliverydomain.BulkCreateRequest{
		SubscriptionIDs:  req.SubscriptionIDs,
		DeliveryPersonID: strings.TrimSpace(req.DeliveryPersonID),
		DeliveryDate:     date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListDeliveries shows a delivery person their own route only.
func (s *Server) ListDeliveries(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listDeliveriesQuery
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseOptionalDate("date", query.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := deliverydomain.ListDeliveryRequest{
		DeliveryPersonID: strings.TrimSpace(query.DeliveryPersonID),
		Date:             date,
		Status:           query.Status,
		Unassigned:       query.Unassigned,
	}
	req.PageToken = strings.TrimSpace(query.PageToken)
	req.PageSize = query.PageSize
	if p.Role == principal.RoleDelivery {
		req.DeliveryPersonID = p.EmployeeID.String()
		req.Unassigned = false
	}

	resp, err := s.deliverySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Deliveries, "page_info": resp.PageInfo})
}

func (s *Server) AssignDelivery(c *gin.Context) {
	var req assignDeliveryRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseOptionalDate("delivery_date", req.DeliveryDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.Assign(c.Request.Context(), deliverydomain.AssignRequest{
		ID:               strings.TrimSpace(c.Param("id")),
		DeliveryPersonID: strings.TrimSpace(req.DeliveryPersonID),
		DeliveryDate:     date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDeliveryStatus(c *gin.Context) {
	var req deliveryStatusRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.UpdateStatus(c.Request.Context(), deliverydomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
		Notes:  strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CompleteDelivery restricts delivery staff to their own deliveries. A
// manager may complete any.
func (s *Server) CompleteDelivery(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req := deliverydomain.MarkDeliveredRequest{ID: strings.TrimSpace(c.Param("id"))}
	if p.Role != principal.RoleManager {
		req.DeliveryPersonID = p.EmployeeID
	}

	resp, err := s.deliverySvc.MarkDelivered(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReportDeliveryIssue(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req reportIssueRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.ReportIssue(c.Request.Context(), deliverydomain.ReportIssueRequest{
		DeliveryID:  strings.TrimSpace(c.Param("id")),
		ReporterID:  p.EmployeeID,
		IssueType:   req.IssueType,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteDelivery(c *gin.Context) {
	if err := s.deliverySvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) DeliveryWorkload(c *gin.Context) {
	date, err := parseOptionalDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var day time.Time
	if date != nil {
		day = *date
	}
	resp, err := s.deliverySvc.Workload(c.Request.Context(), day)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListIssues(c *gin.Context) {
	var query deliverydomain.ListIssueRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.ListIssues(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Issues, "page_info": resp.PageInfo})
}

func (s *Server) UpdateIssueStatus(c *gin.Context) {
	var req issueStatusRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deliverySvc.UpdateIssueStatus(c.Request.Context(), deliverydomain.UpdateIssueStatusRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		Status:          req.Status,
		ResolutionNotes: strings.TrimSpace(req.ResolutionNotes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isDeliveryValidationError(err error) bool {
	switch {
	case errors.Is(err, deliverydomain.ErrInvalidID),
		errors.Is(err, deliverydomain.ErrInvalidSubscriptionID),
		errors.Is(err, deliverydomain.ErrInvalidDeliveryPersonID),
		errors.Is(err, deliverydomain.ErrInvalidDeliveryDate),
		errors.Is(err, deliverydomain.ErrInvalidStatus),
		errors.Is(err, deliverydomain.ErrInvalidIssueType),
		errors.Is(err, deliverydomain.ErrInvalidIssueStatus),
		errors.Is(err, deliverydomain.ErrInvalidDescription),
		errors.Is(err, deliverydomain.ErrInvalidPageToken),
		errors.Is(err, deliverydomain.ErrSubscriptionNotActive):
		return true
	default:
		return false
	}
}
