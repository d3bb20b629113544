// Package notifier delivers outbound notifications to external automation
// hooks when notable pipeline milestones are recorded.
package notifier

import (
	"context"
	"time"

	"flowtrack/internal/journey/domain"
)

// TDDMNotification is the webhook payload fired when a TDDM initial meeting
// is recorded. Dates are normalized to yyyy-MM-dd; the receiving automation
// parses them as plain calendar dates.
type TDDMNotification struct {
	CRN                      string    `json:"crn"`
	CustomerName             string    `json:"customerName,omitempty"`
	CustomerEmail            string    `json:"customerEmail,omitempty"`
	CustomerPhone            string    `json:"customerPhone,omitempty"`
	OSEmail                  string    `json:"osEmail,omitempty"`
	TDDMDate                 string    `json:"tddmDate"`
	MeetingLocation          string    `json:"meetingLocation"`
	Attendance               string    `json:"attendance"`
	AttendeeBNB              string    `json:"attendeeBnb"`
	Duration                 string    `json:"duration"`
	DrawingShared            bool      `json:"drawingShared"`
	BOQShared                bool      `json:"boqShared"`
	ByeLawsDiscussed         bool      `json:"byeLawsDiscussed"`
	SampleFlowPlansDiscussed bool      `json:"sampleFlowPlansDiscussed"`
	ROIDiscussed             bool      `json:"roiDiscussed"`
	ExpectedClosureDate      string    `json:"expectedClosureDate"`
	NextStepBrief            string    `json:"nextStepBrief,omitempty"`
	NextStepEta              string    `json:"nextStepEta,omitempty"`
	CustomerLikes            string    `json:"customerLikes,omitempty"`
	MOM                      string    `json:"mom,omitempty"`
	User                     string    `json:"user"`
	Timestamp                time.Time `json:"timestamp"`
}

// Sender delivers a TDDM notification to the configured endpoint.
type Sender interface {
	SendTDDM(ctx context.Context, payload TDDMNotification) error
}

// BuildTDDMNotification assembles the payload from the journey profile and
// the accepted meeting event.
func BuildTDDMNotification(journey *domain.CustomerJourney, meeting *domain.TDDMInitialMeeting) TDDMNotification {
	base := meeting.Base()
	return TDDMNotification{
		CRN:                      journey.CRN,
		CustomerName:             journey.CustomerName,
		CustomerEmail:            journey.CustomerEmail,
		CustomerPhone:            journey.CustomerPhone,
		OSEmail:                  meeting.OSEmail,
		TDDMDate:                 toCalendarDate(meeting.TDDMDate),
		MeetingLocation:          meeting.MeetingLocation,
		Attendance:               meeting.Attendance,
		AttendeeBNB:              meeting.AttendeeBNB,
		Duration:                 meeting.Duration,
		DrawingShared:            meeting.DrawingShared,
		BOQShared:                meeting.BOQShared,
		ByeLawsDiscussed:         meeting.ByeLawsDiscussed,
		SampleFlowPlansDiscussed: meeting.SampleFlowPlansDiscussed,
		ROIDiscussed:             meeting.ROIDiscussed,
		ExpectedClosureDate:      toCalendarDate(meeting.ExpectedClosureDate),
		NextStepBrief:            base.NextStepBrief,
		NextStepEta:              toCalendarDate(base.NextStepEta),
		CustomerLikes:            meeting.CustomerLikes,
		MOM:                      meeting.MOM,
		User:                     base.User,
		Timestamp:                base.Timestamp,
	}
}

// toCalendarDate reduces a date-ish input to yyyy-MM-dd. Inputs already in
// that form pass through; full timestamps are truncated; anything
// unparseable is forwarded untouched rather than dropped.
func toCalendarDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
