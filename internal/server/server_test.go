package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/auth/session"
	"github.com/smallbiznis/newsexpress/internal/authorization"
	"github.com/smallbiznis/newsexpress/internal/config"
	customerdomain "github.com/smallbiznis/newsexpress/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/newsexpress/internal/delivery/domain"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	notificationdomain "github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"github.com/smallbiznis/newsexpress/internal/ratelimit"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthService struct {
	authdomain.Service
	identities map[string]*authdomain.Identity
	loginCalls int
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Identity, error) {
	identity, ok := f.identities[rawToken]
	if !ok {
		return nil, authdomain.ErrSessionNotFound
	}
	return identity, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	f.loginCalls++
	return &authdomain.LoginResult{
		User:      &authdomain.User{ID: 1, Email: req.Email, Role: principal.RoleCustomer},
		RawToken:  "fresh-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

type fakeCustomerService struct {
	customerdomain.Service
	byUser map[snowflake.ID]*customerdomain.Customer
}

func (f *fakeCustomerService) GetByUserID(ctx context.Context, userID snowflake.ID) (*customerdomain.Customer, error) {
	cust, ok := f.byUser[userID]
	if !ok {
		return nil, customerdomain.ErrNotFound
	}
	return cust, nil
}

type fakeEmployeeService struct {
	employeedomain.Service
	byUser map[snowflake.ID]*employeedomain.Employee
}

func (f *fakeEmployeeService) GetByUserID(ctx context.Context, userID snowflake.ID) (*employeedomain.Employee, error) {
	emp, ok := f.byUser[userID]
	if !ok {
		return nil, employeedomain.ErrNotFound
	}
	return emp, nil
}

// fakeAuthz allows every action listed for a role.
type fakeAuthz struct {
	roles   map[string]principal.Role
	allowed map[principal.Role][]string
}

func (f *fakeAuthz) Authorize(ctx context.Context, actor, object, action string) error {
	for _, a := range f.allowed[f.roles[actor]] {
		if a == object+":"+action {
			return nil
		}
	}
	return authorization.ErrForbidden
}

type fakeThrottle struct {
	result *ratelimit.Result
}

func (f fakeThrottle) Allow(ctx context.Context, clientIP, email string) *ratelimit.Result {
	return f.result
}

type fakeNotificationService struct {
	notificationdomain.Service
	result notificationdomain.SendResult
}

func (f *fakeNotificationService) Send(ctx context.Context, req notificationdomain.SendRequest) (notificationdomain.SendResult, error) {
	return f.result, nil
}

type fakeReportService struct {
	last reportdomain.GenerateRequest
}

func (f *fakeReportService) Generate(ctx context.Context, req reportdomain.GenerateRequest) (*reportdomain.File, error) {
	f.last = req
	if !req.Type.Valid() {
		return nil, reportdomain.ErrInvalidType
	}
	return &reportdomain.File{
		Filename:    "subscription_report.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("xlsx-bytes"),
	}, nil
}

type fakeDeliveryService struct {
	deliverydomain.Service
	deleted []string
}

func (f *fakeDeliveryService) Delete(ctx context.Context, id string) error {
	if id != "300" {
		return deliverydomain.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSubscriptionService struct {
	subscriptiondomain.Service
	last subscriptiondomain.CreateSubscriptionRequest
}

func (f *fakeSubscriptionService) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.CreateSubscriptionResponse, error) {
	f.last = req
	return subscriptiondomain.CreateSubscriptionResponse{}, nil
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	registerValidators()

	return &Server{
		log:      zap.NewNop(),
		sessions: session.NewManager(config.Config{}),
		authsvc: &fakeAuthService{identities: map[string]*authdomain.Identity{
			"customer-token": {User: &authdomain.User{ID: 10, Role: principal.RoleCustomer}},
			"inactive-token": {User: &authdomain.User{ID: 11, Role: principal.RoleCustomer}},
			"clerk-token":    {User: &authdomain.User{ID: 20, Role: principal.RoleClerk}},
		}},
		customerSvc: &fakeCustomerService{byUser: map[snowflake.ID]*customerdomain.Customer{
			10: {ID: 100, UserID: 10, IsActive: true},
			11: {ID: 101, UserID: 11, IsActive: false},
		}},
		employeeSvc: &fakeEmployeeService{byUser: map[snowflake.ID]*employeedomain.Employee{
			20: {ID: 200, UserID: 20, IsActive: true},
		}},
		authzSvc: &fakeAuthz{
			roles: map[string]principal.Role{
				"user:10": principal.RoleCustomer,
				"user:20": principal.RoleClerk,
			},
			allowed: map[principal.Role][]string{
				principal.RoleClerk: {authorization.ObjectReport + ":" + authorization.ActionReportView},
			},
		},
	}
}

func doRequest(router *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAuthRequiredResolvesPrincipal(t *testing.T) {
	srv := newTestServer()
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/whoami", srv.AuthRequired(), func(c *gin.Context) {
		p, _ := currentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{
			"role":        p.Role,
			"customer_id": p.CustomerID.String(),
			"employee_id": p.EmployeeID.String(),
		})
	})

	resp := doRequest(router, http.MethodGet, "/whoami", "customer-token", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"role":"customer","customer_id":"100","employee_id":"0"}`, resp.Body.String())

	resp = doRequest(router, http.MethodGet, "/whoami", "clerk-token", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"role":"clerk","customer_id":"0","employee_id":"200"}`, resp.Body.String())
}

func TestAuthRequiredRejects(t *testing.T) {
	srv := newTestServer()
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/whoami", srv.AuthRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/whoami", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/whoami", "unknown", nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/whoami", "inactive-token", nil).Code)
}

func TestAuthorizeUsesRolePolicy(t *testing.T) {
	srv := newTestServer()
	srv.reportSvc = &fakeReportService{}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/reports/:type", srv.AuthRequired(), srv.authorize(authorization.ObjectReport, authorization.ActionReportView), srv.DownloadReport)

	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/reports/subscription", "customer-token", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/reports/subscription?format=xlsx", "clerk-token", nil).Code)
}

func TestDownloadReportHeaders(t *testing.T) {
	srv := newTestServer()
	reports := &fakeReportService{}
	srv.reportSvc = reports

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/reports/:type", srv.DownloadReport)

	resp := doRequest(router, http.MethodGet, "/reports/subscription?format=xlsx", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="subscription_report.xlsx"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx-bytes", resp.Body.String())
	assert.Equal(t, reportdomain.FormatXLSX, reports.last.Format)

	resp = doRequest(router, http.MethodGet, "/reports/bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoginThrottled(t *testing.T) {
	srv := newTestServer()
	auth := srv.authsvc.(*fakeAuthService)
	srv.loginLimiter = fakeThrottle{result: &ratelimit.Result{Allowed: false, Limit: 5, RetryAfter: 1500 * time.Millisecond}}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/auth/login", srv.Login)

	resp := doRequest(router, http.MethodPost, "/auth/login", "", []byte(`{"email":"ana@example.com","password":"secret123"}`))
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "2", resp.Header().Get("Retry-After"))
	assert.Zero(t, auth.loginCalls)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	srv := newTestServer()
	var nilLimiter *ratelimit.LoginLimiter
	srv.loginLimiter = nilLimiter

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/auth/login", srv.Login)

	resp := doRequest(router, http.MethodPost, "/auth/login", "", []byte(`{"email":"ana@example.com","password":"secret123"}`))
	require.Equal(t, http.StatusOK, resp.Code)

	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "fresh-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSendNotificationCapsDetails(t *testing.T) {
	srv := newTestServer()
	details := make([]notificationdomain.RecipientResult, 15)
	for i := range details {
		details[i] = notificationdomain.RecipientResult{CustomerID: snowflake.ID(i + 1), Success: true}
	}
	srv.notificationSvc = &fakeNotificationService{result: notificationdomain.SendResult{
		CampaignID:      "campaign_1",
		TotalRecipients: 15,
		Successful:      15,
		Details:         details,
	}}
	cfg := config.DefaultAgencyConfig()
	cfg.NotificationDetailCap = 10
	srv.agencyCfg = config.NewStaticAgencyConfig(cfg)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/notifications/send", srv.SendNotification)

	resp := doRequest(router, http.MethodPost, "/notifications/send", "", []byte(`{"audience":"all_customers","type":"general","message":"hello"}`))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			TotalRecipients  int               `json:"total_recipients"`
			Details          []json.RawMessage `json:"details"`
			DetailsTruncated bool              `json:"details_truncated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 15, body.Data.TotalRecipients)
	assert.Len(t, body.Data.Details, 10)
	assert.True(t, body.Data.DetailsTruncated)
}

func TestCustomerFilter(t *testing.T) {
	customer := principal.Principal{UserID: 10, Role: principal.RoleCustomer, CustomerID: 100}
	assert.Equal(t, "100", customerFilter(customer, "999"))

	clerk := principal.Principal{UserID: 20, Role: principal.RoleClerk, EmployeeID: 200}
	assert.Equal(t, "999", customerFilter(clerk, " 999 "))
	assert.Empty(t, customerFilter(clerk, ""))
}

func TestUpdateCustomerRejectsOtherCustomer(t *testing.T) {
	srv := newTestServer()
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.PATCH("/customers/:id", srv.AuthRequired(), srv.UpdateCustomer)

	resp := doRequest(router, http.MethodPatch, "/customers/999", "customer-token", []byte(`{"phone":"0812"}`))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestDeleteDelivery(t *testing.T) {
	srv := newTestServer()
	deliveries := &fakeDeliveryService{}
	srv.deliverySvc = deliveries

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.DELETE("/deliveries/:id", srv.DeleteDelivery)

	resp := doRequest(router, http.MethodDelete, "/deliveries/300", "", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"300"}, deliveries.deleted)

	resp = doRequest(router, http.MethodDelete, "/deliveries/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateSubscriptionWithoutAddressReachesService(t *testing.T) {
	srv := newTestServer()
	subscriptions := &fakeSubscriptionService{}
	srv.subscriptionSvc = subscriptions

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/subscriptions", srv.AuthRequired(), srv.CreateSubscription)

	body := []byte(`{"publication_id":"7","start_date":"2024-06-01","end_date":"2024-06-30"}`)
	resp := doRequest(router, http.MethodPost, "/subscriptions", "customer-token", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Empty(t, subscriptions.last.DeliveryAddress)
	assert.Equal(t, "100", subscriptions.last.CustomerID)
	assert.True(t, subscriptions.last.SelfService)
	assert.Equal(t, 1, subscriptions.last.Quantity)
}
