package audit

import (
	"github.com/primetable/partnerboard/internal/audit/repository"
	"github.com/primetable/partnerboard/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
