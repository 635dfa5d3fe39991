package venue

import (
	"github.com/primetable/partnerboard/internal/venue/repository"
	"github.com/primetable/partnerboard/internal/venue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("venue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
