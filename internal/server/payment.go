package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
)

type recordPaymentRequest struct {
	SubscriptionID string               `json:"subscription_id" binding:"required"`
	Amount         int64                `json:"amount" binding:"required"`
	Method         paymentdomain.Method `json:"method" binding:"required"`
	DueDate        string               `json:"due_date" binding:"omitempty,date"`
}

type payRequest struct {
	Method paymentdomain.Method `json:"method"`
}

// RecordPayment stores cash a clerk collected as completed. A customer
// recording a payment only raises a pending one on their own subscription.
func (s *Server) RecordPayment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	in := paymentdomain.RecordPaymentRequest{
		SubscriptionID: strings.TrimSpace(req.SubscriptionID),
		Amount:         req.Amount,
		Method:         req.Method,
		DueDate:        dueDate,
	}
	if p.Role == principal.RoleCustomer {
		in.CustomerID = p.CustomerID
	} else {
		in.Collected = true
		in.RecordedBy = p.EmployeeID
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), nil, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query paymentdomain.ListPaymentRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.CustomerID = customerFilter(p, query.CustomerID)

	resp, err := s.paymentSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Payments, "page_info": resp.PageInfo})
}

func (s *Server) GetPayment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.paymentSvc.Get(c.Request.Context(), paymentdomain.GetPaymentRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		CustomerID: p.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayPayment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok || p.Role != principal.RoleCustomer {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req payRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.paymentSvc.Pay(c.Request.Context(), paymentdomain.PayRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Method:     req.Method,
		CustomerID: p.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FailPayment(c *gin.Context) {
	resp, err := s.paymentSvc.MarkFailed(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	receipt, err := s.paymentSvc.Receipt(ctx, paymentdomain.GetPaymentRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		CustomerID: p.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	content, err := s.pdf.Receipt(ctx, *receipt)
	if err != nil {
		AbortWithError(c, fmt.Errorf("render receipt: %w", err))
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", receipt.ReceiptNumber)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrInvalidSubscriptionID),
		errors.Is(err, paymentdomain.ErrInvalidCustomerID),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
