package publication

import (
	"github.com/smallbiznis/newsexpress/internal/publication/repository"
	"github.com/smallbiznis/newsexpress/internal/publication/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publication.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
