package booking

import (
	"github.com/primetable/partnerboard/internal/booking/repository"
	"github.com/primetable/partnerboard/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
