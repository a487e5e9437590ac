package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/newsexpress/internal/audit"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/auth"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/auth/session"
	"github.com/smallbiznis/newsexpress/internal/authorization"
	"github.com/smallbiznis/newsexpress/internal/commission"
	commissiondomain "github.com/smallbiznis/newsexpress/internal/commission/domain"
	"github.com/smallbiznis/newsexpress/internal/complaint"
	complaintdomain "github.com/smallbiznis/newsexpress/internal/complaint/domain"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/customer"
	customerdomain "github.com/smallbiznis/newsexpress/internal/customer/domain"
	"github.com/smallbiznis/newsexpress/internal/delivery"
	deliverydomain "github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/internal/employee"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	"github.com/smallbiznis/newsexpress/internal/notification"
	notificationdomain "github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/internal/observability"
	obslogger "github.com/smallbiznis/newsexpress/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	obstracing "github.com/smallbiznis/newsexpress/internal/observability/tracing"
	"github.com/smallbiznis/newsexpress/internal/payment"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/internal/providers"
	"github.com/smallbiznis/newsexpress/internal/providers/pdf"
	"github.com/smallbiznis/newsexpress/internal/publication"
	publicationdomain "github.com/smallbiznis/newsexpress/internal/publication/domain"
	"github.com/smallbiznis/newsexpress/internal/ratelimit"
	"github.com/smallbiznis/newsexpress/internal/report"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	"github.com/smallbiznis/newsexpress/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Services wires every domain module the HTTP surface and the sweeper need.
var Services = fx.Options(
	audit.Module,
	authorization.Module,
	auth.Module,
	customer.Module,
	employee.Module,
	publication.Module,
	subscription.Module,
	payment.Module,
	delivery.Module,
	commission.Module,
	complaint.Module,
	notification.Module,
	report.Module,
	providers.Module,
	ratelimit.Module,
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// loginThrottle is satisfied by *ratelimit.LoginLimiter, including a nil one.
type loginThrottle interface {
	Allow(ctx context.Context, clientIP, email string) *ratelimit.Result
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	sessions        *session.Manager
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	customerSvc     customerdomain.Service
	employeeSvc     employeedomain.Service
	publicationSvc  publicationdomain.Service
	subscriptionSvc subscriptiondomain.Service
	paymentSvc      paymentdomain.Service
	deliverySvc     deliverydomain.Service
	commissionSvc   commissiondomain.Service
	complaintSvc    complaintdomain.Service
	notificationSvc notificationdomain.Service
	reportSvc       reportdomain.Service
	pdf             pdf.Provider
	loginLimiter    loginThrottle
	agencyCfg       *config.AgencyConfigHolder
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Sessions        *session.Manager
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	CustomerSvc     customerdomain.Service
	EmployeeSvc     employeedomain.Service
	PublicationSvc  publicationdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PaymentSvc      paymentdomain.Service
	DeliverySvc     deliverydomain.Service
	CommissionSvc   commissiondomain.Service
	ComplaintSvc    complaintdomain.Service
	NotificationSvc notificationdomain.Service
	ReportSvc       reportdomain.Service
	PDF             pdf.Provider
	LoginLimiter    *ratelimit.LoginLimiter    `optional:"true"`
	AgencyConfig    *config.AgencyConfigHolder `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		sessions:        p.Sessions,
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		customerSvc:     p.CustomerSvc,
		employeeSvc:     p.EmployeeSvc,
		publicationSvc:  p.PublicationSvc,
		subscriptionSvc: p.SubscriptionSvc,
		paymentSvc:      p.PaymentSvc,
		deliverySvc:     p.DeliverySvc,
		commissionSvc:   p.CommissionSvc,
		complaintSvc:    p.ComplaintSvc,
		notificationSvc: p.NotificationSvc,
		reportSvc:       p.ReportSvc,
		pdf:             p.PDF,
		loginLimiter:    p.LoginLimiter,
		agencyCfg:       p.AgencyConfig,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/auth")

	group.POST("/register", s.Register)
	group.POST("/login", s.Login)
	group.POST("/logout", s.Logout)
	group.GET("/me", s.AuthRequired(), s.Me)
	group.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Publications --------
	api.GET("/publications", s.authorize(authorization.ObjectPublication, authorization.ActionPublicationView), s.ListPublications)
	api.GET("/publications/:id", s.authorize(authorization.ObjectPublication, authorization.ActionPublicationView), s.GetPublication)
	api.POST("/publications", s.authorize(authorization.ObjectPublication, authorization.ActionPublicationCreate), s.CreatePublication)
	api.PATCH("/publications/:id/availability", s.authorize(authorization.ObjectPublication, authorization.ActionPublicationUpdate), s.SetPublicationAvailability)
	api.DELETE("/publications/:id", s.authorize(authorization.ObjectPublication, authorization.ActionPublicationDelete), s.DeletePublication)

	// -------- Subscriptions --------
	api.POST("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionCreate), s.CreateSubscription)
	api.GET("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.ListSubscriptions)
	api.GET("/subscriptions/:id", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.GetSubscription)
	api.POST("/subscriptions/:id/status", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionChangeStatus), s.ChangeSubscriptionStatus)
	api.POST("/subscriptions/:id/pause-requests", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionRequestPause), s.RequestPause)
	api.POST("/subscriptions/:id/pause-requests/approve", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionProcessPause), s.ApprovePause)
	api.POST("/subscriptions/:id/pause-requests/reject", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionProcessPause), s.RejectPause)
	api.GET("/pause-requests", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionProcessPause), s.ListPendingPauses)

	// -------- Payments --------
	api.POST("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)
	api.GET("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	api.GET("/payments/:id", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	api.POST("/payments/:id/pay", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentPay), s.PayPayment)
	api.POST("/payments/:id/fail", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentFail), s.FailPayment)
	api.GET("/payments/:id/receipt", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.DownloadReceipt)

	// -------- Complaints --------
	api.POST("/complaints", s.authorize(authorization.ObjectComplaint, authorization.ActionComplaintCreate), s.SubmitComplaint)
	api.GET("/complaints", s.authorize(authorization.ObjectComplaint, authorization.ActionComplaintView), s.ListComplaints)
	api.POST("/complaints/:id/resolve", s.authorize(authorization.ObjectComplaint, authorization.ActionComplaintResolve), s.ResolveComplaint)
	api.POST("/complaints/:id/status", s.authorize(authorization.ObjectComplaint, authorization.ActionComplaintResolve), s.UpdateComplaintStatus)

	// -------- Deliveries --------
	api.GET("/deliveries", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryView), s.ListDeliveries)
	api.GET("/deliveries/workload", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.DeliveryWorkload)
	api.POST("/deliveries", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.CreateDelivery)
	api.POST("/deliveries/bulk", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.BulkCreateDeliveries)
	api.POST("/deliveries/:id/assign", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.AssignDelivery)
	api.POST("/deliveries/:id/status", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.UpdateDeliveryStatus)
	api.POST("/deliveries/:id/complete", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryComplete), s.CompleteDelivery)
	api.POST("/deliveries/:id/issues", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryReportIssue), s.ReportDeliveryIssue)
	api.DELETE("/deliveries/:id", s.authorize(authorization.ObjectDelivery, authorization.ActionDeliveryManage), s.DeleteDelivery)

	// -------- Issues --------
	api.GET("/issues", s.authorize(authorization.ObjectIssue, authorization.ActionIssueView), s.ListIssues)
	api.POST("/issues/:id/status", s.authorize(authorization.ObjectIssue, authorization.ActionIssueManage), s.UpdateIssueStatus)

	// -------- Commissions --------
	api.POST("/commissions/generate", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionManage), s.GenerateCommissions)
	api.GET("/commissions", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionManage), s.ListCommissions)
	api.POST("/commissions/:id/status", s.authorize(authorization.ObjectCommission, authorization.ActionCommissionManage), s.UpdateCommissionStatus)

	// -------- Notifications --------
	api.POST("/notifications/send", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationSend), s.SendNotification)
	api.GET("/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListNotifications)
	api.POST("/notifications/:id/read", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.MarkNotificationRead)

	// -------- Reports --------
	api.GET("/reports/:type", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.DownloadReport)

	// -------- Registries --------
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomer)
	api.PATCH("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerUpdate), s.UpdateCustomer)
	api.POST("/customers/:id/active", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerManage), s.SetCustomerActive)
	api.POST("/employees", s.authorize(authorization.ObjectEmployee, authorization.ActionEmployeeManage), s.CreateEmployee)
	api.GET("/employees", s.authorize(authorization.ObjectEmployee, authorization.ActionEmployeeManage), s.ListEmployees)
	api.POST("/employees/:id/active", s.authorize(authorization.ObjectEmployee, authorization.ActionEmployeeManage), s.SetEmployeeActive)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
