// Package journey provides the customer journey pipeline module.
package journey

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	appevents "flowtrack/internal/events"
	apphttp "flowtrack/internal/http"
	"flowtrack/internal/journey/domain"
	"flowtrack/internal/journey/handler"
	"flowtrack/internal/journey/repository"
	"flowtrack/internal/journey/service"
	"flowtrack/platform/events"
	"flowtrack/platform/logger"
	"flowtrack/platform/validator"
)

// Module represents the journey domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates a new journey module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		log:     log,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "journey"
}

// Service returns the service layer for webhook delivery wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	journeys := ctx.Protected.Group("/journeys")
	m.handler.RegisterRoutes(journeys)
}

// RegisterHandlers subscribes the module's audit log to its own domain
// events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(appevents.JourneyInitiated{}.EventName(), m)
	bus.Subscribe(appevents.StageRecorded{}.EventName(), m)
	bus.Subscribe(appevents.JourneyClosed{}.EventName(), m)
	bus.Subscribe(appevents.TDDMMeetingRecorded{}.EventName(), m)
}

// Handle routes events to the audit log.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case appevents.JourneyInitiated:
		task, subTask := domain.FirstStage()
		m.log.JourneyEvent("journey_initiated", e.CRN, string(task), string(subTask))
	case appevents.StageRecorded:
		m.log.JourneyEvent("stage_recorded", e.CRN, e.Task, e.SubTask)
	case appevents.JourneyClosed:
		m.log.JourneyEvent("journey_closed", e.CRN, e.Task, e.SubTask)
	case appevents.TDDMMeetingRecorded:
		m.log.JourneyEvent("tddm_meeting_recorded", e.CRN, string(domain.TaskTDDM), string(domain.SubTaskTDDMInitialMeeting))
	}
	return nil
}

var _ apphttp.Module = (*Module)(nil)
var _ events.Handler = (*Module)(nil)
