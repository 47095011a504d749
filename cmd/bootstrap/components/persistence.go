package components

import (
	"time"

	infracalendar "tourops-engine/internal/infra/calendar"
	"tourops-engine/internal/infra/readstore"
	"tourops-engine/internal/infra/uow"
	"tourops-engine/internal/pkg/config"
	"tourops-engine/internal/usecase/queries"
	"tourops-engine/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	readstoreModule,
	repositoryModule,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		readstore.NewHolidayReadStore,
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
		fx.Annotate(
			readstore.NewIntervalReadStore,
			fx.As(new(queries.IntervalReadStore)),
		),
		fx.Annotate(
			readstore.NewRateReadStore,
			fx.As(new(shared.RateSource)),
		),
		NewHolidayCalendar,
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		NewUnitOfWork,
	),
)

func NewUnitOfWork(pool *pgxpool.Pool, cfg config.Config) shared.UnitOfWork {
	return uow.NewPostgresUoW(pool, cfg.Engine)
}

func NewHolidayCalendar(store *readstore.HolidayReadStore, client *redis.Client, cfg config.Config) shared.HolidayCalendar {
	ttl := cfg.Redis.CalendarTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return infracalendar.NewCachedHolidayCalendar(store, client, ttl)
}
