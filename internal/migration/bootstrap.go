package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/newsexpress/internal/config"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"go.uber.org/zap"
)

type roleChecker interface {
	HasRole(ctx context.Context, role principal.Role) (bool, error)
}

type employeeCreator interface {
	Create(ctx context.Context, req employeedomain.CreateEmployeeRequest) (*employeedomain.Employee, error)
}

// EnsureManager creates the first manager account from the bootstrap
// settings when no manager exists yet. It is a no-op without credentials.
func EnsureManager(ctx context.Context, roles roleChecker, employees employeeCreator, cfg config.BootstrapConfig, log *zap.Logger) error {
	email := strings.TrimSpace(cfg.ManagerEmail)
	if email == "" || cfg.ManagerPassword == "" {
		return nil
	}

	exists, err := roles.HasRole(ctx, principal.RoleManager)
	if err != nil {
		return err
	}
	if exists {
		log.Debug("manager already present, skipping bootstrap")
		return nil
	}

	name := strings.TrimSpace(cfg.ManagerName)
	if name == "" {
		name = "Agency Manager"
	}

	emp, err := employees.Create(ctx, employeedomain.CreateEmployeeRequest{
		Email:       email,
		Password:    cfg.ManagerPassword,
		DisplayName: name,
		Position:    employeedomain.PositionManager,
	})
	if err != nil {
		return err
	}

	log.Info("bootstrap manager created",
		zap.String("employee_id", emp.ID.String()),
		zap.String("email", email),
	)
	return nil
}
