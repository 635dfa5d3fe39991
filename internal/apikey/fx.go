package apikey

import (
	"github.com/primetable/partnerboard/internal/apikey/repository"
	"github.com/primetable/partnerboard/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
