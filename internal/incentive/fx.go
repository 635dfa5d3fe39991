package incentive

import (
	"github.com/primetable/partnerboard/internal/incentive/repository"
	"github.com/primetable/partnerboard/internal/incentive/service"
	"go.uber.org/fx"
)

var Module = fx.Module("incentive.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
