// Package events defines the cross-module domain events published on the
// platform event bus.
package events

import (
	"flowtrack/platform/events"
)

// Event names for subscription.
const (
	JourneyInitiatedName    = "journey.initiated"
	StageRecordedName       = "journey.stage_recorded"
	JourneyClosedName       = "journey.closed"
	TDDMMeetingRecordedName = "journey.tddm_meeting_recorded"
)

// JourneyInitiated is published when a new customer journey is created.
type JourneyInitiated struct {
	events.BaseEvent
	CRN  string `json:"crn"`
	City string `json:"city"`
}

func (e JourneyInitiated) EventName() string { return JourneyInitiatedName }

// StageRecorded is published after every accepted stage submission.
type StageRecorded struct {
	events.BaseEvent
	CRN     string `json:"crn"`
	Task    string `json:"task"`
	SubTask string `json:"subTask"`
	User    string `json:"user"`
}

func (e StageRecorded) EventName() string { return StageRecordedName }

// JourneyClosed is published when the terminal stage submission closes a
// journey.
type JourneyClosed struct {
	events.BaseEvent
	CRN      string   `json:"crn"`
	Task     string   `json:"task"`
	SubTask  string   `json:"subTask"`
	FinalGMV *float64 `json:"finalGmv,omitempty"`
}

func (e JourneyClosed) EventName() string { return JourneyClosedName }

// TDDMMeetingRecorded is published when a TDDM initial meeting submission is
// accepted. The webhook itself is delivered by the journey service before
// this event fires; subscribers get it for audit logging.
type TDDMMeetingRecorded struct {
	events.BaseEvent
	CRN  string `json:"crn"`
	City string `json:"city"`
}

func (e TDDMMeetingRecorded) EventName() string { return TDDMMeetingRecordedName }
