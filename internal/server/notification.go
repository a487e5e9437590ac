package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/newsexpress/internal/notification/domain"
)

type sendNotificationResponse struct {
	notificationdomain.SendResult
	DetailsTruncated bool `json:"details_truncated"`
}

// SendNotification returns the campaign totals with at most the configured
// number of per-recipient details.
func (s *Server) SendNotification(c *gin.Context) {
	var req notificationdomain.SendRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.notificationSvc.Send(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := sendNotificationResponse{SendResult: result}
	if limit := s.agencyCfg.Get().NotificationDetailCap; limit > 0 && len(resp.Details) > limit {
		resp.Details = resp.Details[:limit]
		resp.DetailsTruncated = true
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotifications(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query notificationdomain.ListNotificationRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	query.UserID = p.UserID

	resp, err := s.notificationSvc.ListForUser(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":         resp.Notifications,
		"unread_count": resp.UnreadCount,
		"page_info":    resp.PageInfo,
	})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.notificationSvc.MarkRead(c.Request.Context(), notificationdomain.MarkReadRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		UserID: p.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isNotificationValidationError(err error) bool {
	switch {
	case errors.Is(err, notificationdomain.ErrInvalidID),
		errors.Is(err, notificationdomain.ErrInvalidAudience),
		errors.Is(err, notificationdomain.ErrInvalidCustomerIDs),
		errors.Is(err, notificationdomain.ErrInvalidType),
		errors.Is(err, notificationdomain.ErrInvalidChannel),
		errors.Is(err, notificationdomain.ErrInvalidMessage),
		errors.Is(err, notificationdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
