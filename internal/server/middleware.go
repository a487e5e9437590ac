package server

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/newsexpress/internal/auditcontext"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	obscontext "github.com/smallbiznis/newsexpress/internal/observability/context"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"go.uber.org/zap"
)

// AuthRequired resolves the session token into a principal carrying the
// caller's customer or employee id.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		identity, err := s.authsvc.Authenticate(ctx, token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		p, err := s.resolvePrincipal(ctx, identity)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx = principal.WithPrincipal(ctx, p)
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), p.UserID.String())
		ctx = obscontext.WithActor(ctx, string(p.Role), p.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) resolvePrincipal(ctx context.Context, identity *authdomain.Identity) (principal.Principal, error) {
	if identity == nil || identity.User == nil {
		return principal.Principal{}, ErrUnauthorized
	}
	user := identity.User
	p := principal.Principal{UserID: user.ID, Role: user.Role}

	switch {
	case user.Role == principal.RoleCustomer:
		cust, err := s.customerSvc.GetByUserID(ctx, user.ID)
		if err != nil {
			return principal.Principal{}, err
		}
		if cust == nil || !cust.IsActive {
			return principal.Principal{}, ErrForbidden
		}
		p.CustomerID = cust.ID
	case user.Role.IsStaff():
		emp, err := s.employeeSvc.GetByUserID(ctx, user.ID)
		if err != nil {
			return principal.Principal{}, err
		}
		if emp == nil || !emp.IsActive {
			return principal.Principal{}, ErrForbidden
		}
		p.EmployeeID = emp.ID
	default:
		s.log.Warn("session user has unknown role",
			zap.String("user_id", user.ID.String()),
			zap.String("role", string(user.Role)),
		)
		return principal.Principal{}, ErrForbidden
	}
	return p, nil
}

// authorize gates a route on the casbin policy for the caller's role.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := currentPrincipal(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), "user:"+p.UserID.String(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (principal.Principal, bool) {
	if c == nil || c.Request == nil {
		return principal.Principal{}, false
	}
	return principal.FromContext(c.Request.Context())
}

// customerFilter pins list queries to the caller's own customer id and lets
// staff filter by any.
func customerFilter(p principal.Principal, requested string) string {
	if p.Role == principal.RoleCustomer {
		return p.CustomerID.String()
	}
	return strings.TrimSpace(requested)
}
