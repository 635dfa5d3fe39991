package commission

import (
	"github.com/primetable/partnerboard/internal/commission/repository"
	"github.com/primetable/partnerboard/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
