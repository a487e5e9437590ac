package complaint

import (
	"github.com/smallbiznis/newsexpress/internal/complaint/repository"
	"github.com/smallbiznis/newsexpress/internal/complaint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("complaint.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
