package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	customerdomain "github.com/smallbiznis/newsexpress/internal/customer/domain"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Phone       string `json:"phone"`
	Address     string `json:"address" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type sessionView struct {
	User      *authdomain.User `json:"user"`
	ExpiresAt string           `json:"expires_at"`
}

// Register creates a customer account and signs it in.
func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.customerSvc.Register(ctx, customerdomain.RegisterCustomerRequest{
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"data": newSessionView(result)})
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := strings.TrimSpace(req.Email)

	if limit := s.loginLimiter.Allow(ctx, c.ClientIP(), email); !limit.Allowed {
		s.obsMetrics.RecordLoginThrottled(ctx)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limit.RetryAfter.Seconds()))))
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if s.auditSvc != nil {
			_ = s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), nil, "user.login_failed", "user", nil, map[string]any{
				"email": email,
			})
		}
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	if s.auditSvc != nil {
		userID := result.User.ID.String()
		_ = s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), &userID, "user.login", "user", &userID, map[string]any{
			"email": email,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": newSessionView(result)})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	user, err := s.authsvc.GetUser(ctx, p.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"user": user, "role": p.Role}
	if p.CustomerID != 0 {
		resp["customer_id"] = p.CustomerID.String()
	}
	if p.EmployeeID != 0 {
		resp["employee_id"] = p.EmployeeID.String()
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangePassword(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.CurrentPassword == req.NewPassword {
		AbortWithError(c, newValidationError("new_password", "must_differ", "new password must be different"))
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func newSessionView(result *authdomain.LoginResult) sessionView {
	return sessionView{
		User:      result.User,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
