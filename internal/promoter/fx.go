package promoter

import (
	"github.com/primetable/partnerboard/internal/promoter/repository"
	"github.com/primetable/partnerboard/internal/promoter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promoter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
