package team

import (
	"github.com/primetable/partnerboard/internal/team/repository"
	"github.com/primetable/partnerboard/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
