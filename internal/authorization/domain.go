package authorization

import (
	"context"
	"errors"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service decides whether an actor may perform action on object.
// Actors are "system" or "user:<id>".
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}

const Domain = "agency"

const (
	ObjectPublication  = "publication"
	ObjectSubscription = "subscription"
	ObjectPayment      = "payment"
	ObjectDelivery     = "delivery"
	ObjectIssue        = "issue"
	ObjectCommission   = "commission"
	ObjectComplaint    = "complaint"
	ObjectNotification = "notification"
	ObjectReport       = "report"
	ObjectCustomer     = "customer"
	ObjectEmployee     = "employee"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionPublicationView   = "publication.view"
	ActionPublicationCreate = "publication.create"
	ActionPublicationUpdate = "publication.update"
	ActionPublicationDelete = "publication.delete"

	ActionSubscriptionView         = "subscription.view"
	ActionSubscriptionCreate       = "subscription.create"
	ActionSubscriptionChangeStatus = "subscription.change_status"
	ActionSubscriptionRequestPause = "subscription.request_pause"
	ActionSubscriptionProcessPause = "subscription.process_pause"
	ActionSubscriptionExpire       = "subscription.expire"
	ActionSubscriptionResume       = "subscription.resume"

	ActionPaymentView        = "payment.view"
	ActionPaymentRecord      = "payment.record"
	ActionPaymentPay         = "payment.pay"
	ActionPaymentFail        = "payment.fail"
	ActionPaymentMarkOverdue = "payment.mark_overdue"

	ActionDeliveryView        = "delivery.view"
	ActionDeliveryComplete    = "delivery.complete"
	ActionDeliveryReportIssue = "delivery.report_issue"
	ActionDeliveryManage      = "delivery.manage"

	ActionIssueView   = "issue.view"
	ActionIssueManage = "issue.manage"

	ActionCommissionManage = "commission.manage"

	ActionComplaintCreate  = "complaint.create"
	ActionComplaintView    = "complaint.view"
	ActionComplaintResolve = "complaint.resolve"

	ActionNotificationView = "notification.view"
	ActionNotificationSend = "notification.send"

	ActionReportView = "report.view"

	ActionCustomerView   = "customer.view"
	ActionCustomerUpdate = "customer.update"
	ActionCustomerManage = "customer.manage"

	ActionEmployeeManage = "employee.manage"

	ActionAuditLogView = "audit_log.view"
)
