package overview

import (
	"github.com/primetable/partnerboard/internal/overview/repository"
	"github.com/primetable/partnerboard/internal/overview/service"
	"go.uber.org/fx"
)

var Module = fx.Module("overview.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
