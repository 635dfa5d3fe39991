package finance

import (
	"github.com/primetable/partnerboard/internal/finance/repository"
	"github.com/primetable/partnerboard/internal/finance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
