package journey

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	appevents "flowtrack/internal/events"
	"flowtrack/platform/events"
	"flowtrack/platform/logger"
	"flowtrack/platform/validator"
)

func newTestModule(t *testing.T) (*Module, *events.InMemoryBus, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	bus := events.NewInMemoryBus(log)
	m := NewModule(nil, bus, validator.New(), log)
	m.RegisterHandlers(bus)
	return m, bus, &buf
}

func TestModuleAuditLogsDomainEvents(t *testing.T) {
	_, bus, buf := newTestModule(t)
	ctx := context.Background()

	published := []events.Event{
		appevents.JourneyInitiated{BaseEvent: events.NewBaseEvent(), CRN: "CRN700", City: "BLR"},
		appevents.StageRecorded{BaseEvent: events.NewBaseEvent(), CRN: "CRN700", Task: "Recce", SubTask: "Recce Form Submission", User: "rm@example.com"},
		appevents.TDDMMeetingRecorded{BaseEvent: events.NewBaseEvent(), CRN: "CRN700", City: "BLR"},
		appevents.JourneyClosed{BaseEvent: events.NewBaseEvent(), CRN: "CRN700", Task: "Closure", SubTask: "Post-Closure Follow Up"},
	}
	for _, ev := range published {
		if err := bus.PublishSync(ctx, ev); err != nil {
			t.Fatalf("PublishSync(%s): %v", ev.EventName(), err)
		}
	}

	out := buf.String()
	for _, marker := range []string{
		"event=journey_initiated",
		"event=stage_recorded",
		"event=tddm_meeting_recorded",
		"event=journey_closed",
	} {
		if !strings.Contains(out, marker) {
			t.Errorf("audit log missing %q, got:\n%s", marker, out)
		}
	}
	if !strings.Contains(out, "crn=CRN700") {
		t.Errorf("audit log missing crn, got:\n%s", out)
	}
}

type unrelatedEvent struct{ events.BaseEvent }

func (unrelatedEvent) EventName() string { return "unrelated" }

func TestModuleHandleIgnoresUnknownEvents(t *testing.T) {
	m, _, buf := newTestModule(t)

	if err := m.Handle(context.Background(), unrelatedEvent{}); err != nil {
		t.Fatalf("Handle returned error for unknown event: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("unknown event produced log output: %s", buf.String())
	}
}
