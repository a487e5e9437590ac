package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateEmployeeRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	DisplayName string     `json:"display_name"`
	Phone       string     `json:"phone"`
	Position    Position   `json:"position"`
	Zone        string     `json:"zone"`
	Salary      int64      `json:"salary"`
	HiredAt     *time.Time `json:"hired_at"`
}

type ListEmployeeRequest struct {
	pagination.Pagination
	Position Position `form:"position"`
	IsActive *bool    `form:"is_active"`
}

type ListEmployeeResponse struct {
	pagination.PageInfo
	Employees []Employee `json:"employees"`
}

type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (*Employee, error)
	Get(ctx context.Context, id string) (*Employee, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (*Employee, error)
	List(ctx context.Context, req ListEmployeeRequest) (ListEmployeeResponse, error)
	SetActive(ctx context.Context, id string, active bool) (*Employee, error)
	// ActiveDeliveryPersons returns every active employee holding the
	// delivery position.
	ActiveDeliveryPersons(ctx context.Context) ([]Employee, error)
	// RequireDeliveryPerson loads id with tx (s.db when nil) and fails unless
	// it is an active delivery employee.
	RequireDeliveryPerson(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Employee, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidPosition   = errors.New("invalid_position")
	ErrInvalidSalary     = errors.New("invalid_salary")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrNotDeliveryPerson = errors.New("not_delivery_person")
	ErrEmployeeInactive  = errors.New("employee_inactive")
	ErrNotFound          = errors.New("not_found")
)
