package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type createSubscriptionRequest struct {
	CustomerID      string                         `json:"customer_id"`
	PublicationID   string                         `json:"publication_id" binding:"required"`
	StartDate       string                         `json:"start_date" binding:"required,date"`
	EndDate         string                         `json:"end_date" binding:"required,date"`
	DeliveryAddress string                         `json:"delivery_address"`
	Quantity        int                            `json:"quantity"`
	PaymentPlan     subscriptiondomain.PaymentPlan `json:"payment_plan"`
	PaymentMethod   paymentdomain.Method           `json:"payment_method"`
}

type pauseRequest struct {
	StartDate string                         `json:"start_date" binding:"required,date"`
	EndDate   string                         `json:"end_date" binding:"required,date"`
	Reason    subscriptiondomain.PauseReason `json:"reason" binding:"required"`
	Notes     string                         `json:"notes"`
}

type changeStatusRequest struct {
	Status subscriptiondomain.Status `json:"status" binding:"required"`
}

// CreateSubscription lets a customer subscribe themselves or a clerk
// subscribe any customer.
func (s *Server) CreateSubscription(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createSubscriptionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	in := subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		PublicationID:   strings.TrimSpace(req.PublicationID),
		StartDate:       start,
		EndDate:         end,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Quantity:        quantity,
		PaymentPlan:     req.PaymentPlan,
		PaymentMethod:   req.PaymentMethod,
	}
	if p.Role == principal.RoleCustomer {
		in.CustomerID = p.CustomerID.String()
		in.SelfService = true
	} else {
		in.RecordedBy = p.EmployeeID
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query subscriptiondomain.ListSubscriptionRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.CustomerID = customerFilter(p, query.CustomerID)

	resp, err := s.subscriptionSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Subscriptions, "page_info": resp.PageInfo})
}

func (s *Server) GetSubscription(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.subscriptionSvc.Get(c.Request.Context(), subscriptiondomain.GetSubscriptionRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		CustomerID: p.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeSubscriptionStatus(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req changeStatusRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.ChangeStatus(c.Request.Context(), subscriptiondomain.ChangeStatusRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Status:     req.Status,
		CustomerID: p.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RequestPause(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok || p.Role != principal.RoleCustomer {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req pauseRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.RequestPause(c.Request.Context(), subscriptiondomain.RequestPauseRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		CustomerID: p.CustomerID,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApprovePause(c *gin.Context) {
	s.processPause(c, s.subscriptionSvc.ApprovePause)
}

func (s *Server) RejectPause(c *gin.Context) {
	s.processPause(c, s.subscriptionSvc.RejectPause)
}

func (s *Server) processPause(c *gin.Context, decide func(ctx context.Context, req subscriptiondomain.ProcessPauseRequest) (*subscriptiondomain.Subscription, error)) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := decide(c.Request.Context(), subscriptiondomain.ProcessPauseRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		ProcessorID: p.EmployeeID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPendingPauses(c *gin.Context) {
	var query pagination.Pagination
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.ListPendingPauses(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Subscriptions, "page_info": resp.PageInfo})
}

func isSubscriptionValidationError(err error) bool {
	switch {
	case errors.Is(err, subscriptiondomain.ErrInvalidID),
		errors.Is(err, subscriptiondomain.ErrInvalidCustomerID),
		errors.Is(err, subscriptiondomain.ErrInvalidPublicationID),
		errors.Is(err, subscriptiondomain.ErrInvalidDateRange),
		errors.Is(err, subscriptiondomain.ErrInvalidQuantity),
		errors.Is(err, subscriptiondomain.ErrInvalidAddress),
		errors.Is(err, subscriptiondomain.ErrInvalidPaymentPlan),
		errors.Is(err, subscriptiondomain.ErrInvalidStatus),
		errors.Is(err, subscriptiondomain.ErrInvalidPauseStatus),
		errors.Is(err, subscriptiondomain.ErrInvalidPauseReason),
		errors.Is(err, subscriptiondomain.ErrInvalidPageToken),
		errors.Is(err, subscriptiondomain.ErrPauseStartNotFuture),
		errors.Is(err, subscriptiondomain.ErrInvalidPauseWindow),
		errors.Is(err, subscriptiondomain.ErrPauseTooShort),
		errors.Is(err, subscriptiondomain.ErrPauseTooLong),
		errors.Is(err, subscriptiondomain.ErrPauseAfterEnd),
		errors.Is(err, subscriptiondomain.ErrPauseAlreadyPending),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotActive),
		errors.Is(err, subscriptiondomain.ErrPublicationUnavailable),
		errors.Is(err, subscriptiondomain.ErrCustomerInactive):
		return true
	default:
		return false
	}
}
