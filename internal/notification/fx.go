package notification

import (
	"github.com/smallbiznis/newsexpress/internal/notification/channel"
	"github.com/smallbiznis/newsexpress/internal/notification/repository"
	"github.com/smallbiznis/newsexpress/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(channel.NewSenders),
	fx.Provide(service.New),
)
