package components

import (
	"time"

	"tourops-engine/internal/pkg/clock"
	"tourops-engine/internal/pkg/config"
	"tourops-engine/internal/usecase/commands"
	"tourops-engine/internal/usecase/queries"
	"tourops-engine/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	NewEngineLocation,
)

// NewEngineLocation resolves the operator timezone every calendar decision
// (weekend, holiday date) is made in.
func NewEngineLocation(cfg config.Config) (*time.Location, error) {
	return time.LoadLocation(cfg.Engine.TimeZone)
}

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewPricingQueries,
		NewAvailabilityQueries,
	),
)

func NewAvailabilityQueries(intervals queries.IntervalReadStore, cfg config.Config) queries.AvailabilityQueries {
	return queries.NewAvailabilityQueries(intervals, cfg.Engine.TurnaroundBuffer)
}

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewBookingCommands,
	),
)

func NewBookingCommands(
	uow shared.UnitOfWork,
	rates shared.RateSource,
	calendar shared.HolidayCalendar,
	publisher shared.EventPublisher,
	bookingQueries queries.BookingQueries,
	cfg config.Config,
	clk clock.Clock,
	loc *time.Location,
) commands.BookingCommands {
	return commands.NewBookingUseCase(
		uow, rates, calendar, publisher, bookingQueries,
		cfg.Engine.TurnaroundBuffer, clk, loc,
	)
}
