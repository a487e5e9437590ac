package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorID, err := s.resolveActor(ctx, actor)
	if err != nil {
		s.auditDenied(ctx, actorID, object, action)
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, Domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", nil, nil
	}
	raw, ok := strings.CutPrefix(actor, "user:")
	if !ok {
		return "", "", nil, ErrInvalidActor
	}
	userID, err := snowflake.ParseString(raw)
	if err != nil || userID == 0 {
		return "", "", nil, ErrInvalidActor
	}
	idStr := userID.String()

	role, err := s.roleForUser(ctx, userID)
	if err != nil {
		return actor, "", &idStr, err
	}
	return actor, RoleSubject(role), &idStr, nil
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (principal.Role, error) {
	var row struct {
		Role     string
		IsActive bool
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role, is_active FROM users WHERE id = ?`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role, ok := principal.ParseRole(row.Role)
	if !ok || !row.IsActive {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject so role changes take effect.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", Domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) >= 2 && rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, Domain)
	if err != nil || has {
		return err
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, Domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorID *string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorType := string(auditdomain.ActorTypeUser)
	if actorID == nil {
		actorType = string(auditdomain.ActorTypeSystem)
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

func RoleSubject(role principal.Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	customer := RoleSubject(principal.RoleCustomer)
	clerk := RoleSubject(principal.RoleClerk)
	delivery := RoleSubject(principal.RoleDelivery)
	manager := RoleSubject(principal.RoleManager)

	policies := [][]string{
		{customer, ObjectPublication, ActionPublicationView},
		{customer, ObjectSubscription, ActionSubscriptionView},
		{customer, ObjectSubscription, ActionSubscriptionCreate},
		{customer, ObjectSubscription, ActionSubscriptionChangeStatus},
		{customer, ObjectSubscription, ActionSubscriptionRequestPause},
		{customer, ObjectPayment, ActionPaymentView},
		{customer, ObjectPayment, ActionPaymentRecord},
		{customer, ObjectPayment, ActionPaymentPay},
		{customer, ObjectComplaint, ActionComplaintCreate},
		{customer, ObjectComplaint, ActionComplaintView},
		{customer, ObjectNotification, ActionNotificationView},
		{customer, ObjectCustomer, ActionCustomerUpdate},

		{clerk, ObjectPublication, ActionPublicationView},
		{clerk, ObjectSubscription, ActionSubscriptionView},
		{clerk, ObjectSubscription, ActionSubscriptionCreate},
		{clerk, ObjectSubscription, ActionSubscriptionChangeStatus},
		{clerk, ObjectSubscription, ActionSubscriptionProcessPause},
		{clerk, ObjectPayment, ActionPaymentView},
		{clerk, ObjectPayment, ActionPaymentRecord},
		{clerk, ObjectPayment, ActionPaymentFail},
		{clerk, ObjectComplaint, ActionComplaintView},
		{clerk, ObjectComplaint, ActionComplaintResolve},
		{clerk, ObjectCustomer, ActionCustomerView},
		{clerk, ObjectCustomer, ActionCustomerUpdate},
		{clerk, ObjectCustomer, ActionCustomerManage},
		{clerk, ObjectNotification, ActionNotificationView},

		{delivery, ObjectPublication, ActionPublicationView},
		{delivery, ObjectDelivery, ActionDeliveryView},
		{delivery, ObjectDelivery, ActionDeliveryComplete},
		{delivery, ObjectDelivery, ActionDeliveryReportIssue},
		{delivery, ObjectNotification, ActionNotificationView},

		{manager, ObjectPublication, ActionPublicationCreate},
		{manager, ObjectPublication, ActionPublicationUpdate},
		{manager, ObjectPublication, ActionPublicationDelete},
		{manager, ObjectDelivery, ActionDeliveryManage},
		{manager, ObjectIssue, ActionIssueView},
		{manager, ObjectIssue, ActionIssueManage},
		{manager, ObjectCommission, ActionCommissionManage},
		{manager, ObjectNotification, ActionNotificationSend},
		{manager, ObjectReport, ActionReportView},
		{manager, ObjectEmployee, ActionEmployeeManage},
		{manager, ObjectAuditLog, ActionAuditLogView},

		{"role:system", ObjectSubscription, ActionSubscriptionExpire},
		{"role:system", ObjectSubscription, ActionSubscriptionResume},
		{"role:system", ObjectPayment, ActionPaymentMarkOverdue},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// A manager can do everything a clerk or delivery person can.
	for _, inherited := range []string{clerk, delivery} {
		if _, err := enforcer.AddGroupingPolicy(manager, inherited, Domain); err != nil {
			return err
		}
	}
	return nil
}
