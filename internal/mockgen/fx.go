package mockgen

import (
	"context"

	"github.com/primetable/partnerboard/internal/config"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("mockgen",
	fx.Provide(New),
	fx.Invoke(bootstrap),
)

type bootstrapParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Generator *Generator
}

// bootstrap generates the demo dataset on startup when demo mode is on
// and the seeded venue does not exist yet.
func bootstrap(p bootstrapParams) {
	if !p.Cfg.Demo.Enabled || p.Cfg.IsProduction() {
		return
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log := p.Log.Named("mockgen.bootstrap")

				var count int64
				venueID := p.Cfg.Demo.Seed*1_000_000 + 1
				if err := p.DB.Model(&venuedomain.Venue{}).
					Where("id = ?", venueID).
					Count(&count).Error; err != nil {
					log.Warn("demo venue lookup failed", zap.Error(err))
					return
				}
				if count > 0 {
					return
				}

				if _, err := p.Generator.Generate(context.Background(), GenerateRequest{}); err != nil {
					log.Warn("demo dataset generation failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}
