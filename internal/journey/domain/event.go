package domain

import (
	"time"

	"flowtrack/platform/apperr"
)

// EventBase carries the fields common to every stage submission. Events are
// immutable once constructed; history is append-only.
type EventBase struct {
	ID            string    `json:"id"`
	Stage         StageRef  `json:"stage"`
	User          string    `json:"user"`
	Timestamp     time.Time `json:"timestamp"`
	NextStepBrief string    `json:"nextStepBrief,omitempty"`
	NextStepEta   string    `json:"nextStepEta,omitempty"`
	Files         string    `json:"files,omitempty"` // URL of an uploaded file
}

// NewEventBase builds the common envelope for a stage event. The ID is
// derived from the event creation time, suffixed with the CRN so ids stay
// unique across customers submitting in the same instant.
func NewEventBase(stage StageRef, user string, now time.Time) EventBase {
	return EventBase{
		ID:        now.UTC().Format(time.RFC3339Nano) + "_" + stage.CRN,
		Stage:     stage,
		User:      user,
		Timestamp: now.UTC(),
	}
}

// StageEvent is the closed union of the ten submission shapes, one per
// SubTask. Variants are only constructed through their New* constructors,
// which enforce the per-variant required fields.
type StageEvent interface {
	Base() EventBase
	SubTask() SubTask
	Task() Task
}

// GMVCarrier is implemented by variants that carry an expected GMV figure.
type GMVCarrier interface {
	ExpectedGMVValue() float64
}

// RecceFormSubmission records the initial site survey.
type RecceFormSubmission struct {
	EventBase
	DateOfRecce             string  `json:"dateOfRecce"`
	Attendee                string  `json:"attendee"`
	RecceTemplateURL        string  `json:"recceTemplateUrl,omitempty"`
	ProjectStartTimeline    string  `json:"projectStartTimeline"`
	ExpectedGMV             float64 `json:"expectedGmv"`
	HasDrawing              bool    `json:"hasDrawing"`
	DrawingFile             string  `json:"drawingFile,omitempty"`
	ArchitecturalPreference string  `json:"architecturalPreference,omitempty"`
	SiteConditionNotes      string  `json:"siteConditionNotes,omitempty"`
	ExpectedClosureDate     string  `json:"expectedClosureDate"`
}

func (e *RecceFormSubmission) Base() EventBase           { return e.EventBase }
func (e *RecceFormSubmission) SubTask() SubTask          { return SubTaskRecceFormSubmission }
func (e *RecceFormSubmission) Task() Task                { return TaskRecce }
func (e *RecceFormSubmission) ExpectedGMVValue() float64 { return e.ExpectedGMV }

// NewRecceFormSubmission validates the required recce fields and constructs
// the event.
func NewRecceFormSubmission(base EventBase, e RecceFormSubmission) (*RecceFormSubmission, error) {
	if e.DateOfRecce == "" || e.Attendee == "" || e.ProjectStartTimeline == "" || e.ExpectedClosureDate == "" {
		return nil, apperr.Validation("recce form submission is missing required fields")
	}
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	e.EventBase = base
	return &e, nil
}

// PostRecceFollowUp records a follow up after the recce.
type PostRecceFollowUp struct {
	EventBase
	FollowUpNumber int    `json:"followUpNumber"`
	ExpectedAction string `json:"expectedAction"`
	MOM            string `json:"mom,omitempty"`
}

func (e *PostRecceFollowUp) Base() EventBase  { return e.EventBase }
func (e *PostRecceFollowUp) SubTask() SubTask { return SubTaskPostRecceFollowUp }
func (e *PostRecceFollowUp) Task() Task       { return TaskRecce }

func NewPostRecceFollowUp(base EventBase, e PostRecceFollowUp) (*PostRecceFollowUp, error) {
	if e.ExpectedAction == "" {
		return nil, apperr.Validation("expected action is required")
	}
	if e.FollowUpNumber < 1 {
		return nil, apperr.Validation("follow up number must be at least 1")
	}
	e.EventBase = base
	return &e, nil
}

// TDDMInitialMeeting records the technical design discussion meeting.
type TDDMInitialMeeting struct {
	EventBase
	TDDMDate                 string  `json:"tddmDate"`
	MeetingLocation          string  `json:"meetingLocation"`
	Attendance               string  `json:"attendance"`  // client side
	AttendeeBNB              string  `json:"attendeeBnb"` // company side
	OSEmail                  string  `json:"osEmail,omitempty"`
	Duration                 string  `json:"duration"`
	ExpectedClosureDate      string  `json:"expectedClosureDate"`
	ExpectedGMV              float64 `json:"expectedGmv"`
	DrawingShared            bool    `json:"drawingShared"`
	DrawingFile              string  `json:"drawingFile,omitempty"`
	BOQShared                bool    `json:"boqShared"`
	ByeLawsDiscussed         bool    `json:"byeLawsDiscussed"`
	SampleFlowPlansDiscussed bool    `json:"sampleFlowPlansDiscussed"`
	ROIDiscussed             bool    `json:"roiDiscussed"`
	CustomerLikes            string  `json:"customerLikes,omitempty"`
	MOM                      string  `json:"mom,omitempty"`
}

func (e *TDDMInitialMeeting) Base() EventBase           { return e.EventBase }
func (e *TDDMInitialMeeting) SubTask() SubTask          { return SubTaskTDDMInitialMeeting }
func (e *TDDMInitialMeeting) Task() Task                { return TaskTDDM }
func (e *TDDMInitialMeeting) ExpectedGMVValue() float64 { return e.ExpectedGMV }

func NewTDDMInitialMeeting(base EventBase, e TDDMInitialMeeting) (*TDDMInitialMeeting, error) {
	if e.TDDMDate == "" || e.MeetingLocation == "" || e.Attendance == "" || e.AttendeeBNB == "" ||
		e.Duration == "" || e.ExpectedClosureDate == "" {
		return nil, apperr.Validation("TDDM initial meeting is missing required fields")
	}
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	e.EventBase = base
	return &e, nil
}

// PostTDDMFollowUp records a follow up after the TDDM meeting.
type PostTDDMFollowUp struct {
	EventBase
	FollowUpNumber int    `json:"followUpNumber"`
	ExpectedAction string `json:"expectedAction"`
	MOM            string `json:"mom,omitempty"`
}

func (e *PostTDDMFollowUp) Base() EventBase  { return e.EventBase }
func (e *PostTDDMFollowUp) SubTask() SubTask { return SubTaskPostTDDMFollowUp }
func (e *PostTDDMFollowUp) Task() Task       { return TaskTDDM }

func NewPostTDDMFollowUp(base EventBase, e PostTDDMFollowUp) (*PostTDDMFollowUp, error) {
	if e.ExpectedAction == "" {
		return nil, apperr.Validation("expected action is required")
	}
	if e.FollowUpNumber < 1 {
		return nil, apperr.Validation("follow up number must be at least 1")
	}
	e.EventBase = base
	return &e, nil
}

// Negotiation records a pricing negotiation round.
type Negotiation struct {
	EventBase
	NegotiationNumber  int     `json:"negotiationNumber"`
	ExpectedGMV        float64 `json:"expectedGmv"`
	KeyConcern         string  `json:"keyConcern,omitempty"`
	SolutionRecommends string  `json:"solutionRecommends,omitempty"`
}

func (e *Negotiation) Base() EventBase           { return e.EventBase }
func (e *Negotiation) SubTask() SubTask          { return SubTaskNegotiation }
func (e *Negotiation) Task() Task                { return TaskAdvanceMeeting }
func (e *Negotiation) ExpectedGMVValue() float64 { return e.ExpectedGMV }

func NewNegotiation(base EventBase, e Negotiation) (*Negotiation, error) {
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	if e.NegotiationNumber < 1 {
		return nil, apperr.Validation("negotiation number must be at least 1")
	}
	e.EventBase = base
	return &e, nil
}

// SiteVisit records a customer site visit.
type SiteVisit struct {
	EventBase
	SiteVisitDate string  `json:"siteVisitDate"`
	Attendees     string  `json:"attendees"`
	ExpectedGMV   float64 `json:"expectedGmv"`
}

func (e *SiteVisit) Base() EventBase           { return e.EventBase }
func (e *SiteVisit) SubTask() SubTask          { return SubTaskSiteVisit }
func (e *SiteVisit) Task() Task                { return TaskAdvanceMeeting }
func (e *SiteVisit) ExpectedGMVValue() float64 { return e.ExpectedGMV }

func NewSiteVisit(base EventBase, e SiteVisit) (*SiteVisit, error) {
	if e.SiteVisitDate == "" || e.Attendees == "" {
		return nil, apperr.Validation("site visit is missing required fields")
	}
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	e.EventBase = base
	return &e, nil
}

// AgreementDiscussion records the agreement terms discussion.
type AgreementDiscussion struct {
	EventBase
	AgreementShared     bool    `json:"agreementShared"`
	ExpectedSigningDate string  `json:"expectedSigningDate"`
	ConcernsRaised      string  `json:"concernsRaised,omitempty"`
	ExpectedGMV         float64 `json:"expectedGmv"`
}

func (e *AgreementDiscussion) Base() EventBase           { return e.EventBase }
func (e *AgreementDiscussion) SubTask() SubTask          { return SubTaskAgreementDiscussion }
func (e *AgreementDiscussion) Task() Task                { return TaskAdvanceMeeting }
func (e *AgreementDiscussion) ExpectedGMVValue() float64 { return e.ExpectedGMV }

func NewAgreementDiscussion(base EventBase, e AgreementDiscussion) (*AgreementDiscussion, error) {
	if e.ExpectedSigningDate == "" {
		return nil, apperr.Validation("expected signing date is required")
	}
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	e.EventBase = base
	return &e, nil
}

// ClosureFollowUp records a pre-closure follow up in the advance meeting stage.
type ClosureFollowUp struct {
	EventBase
	FollowUpNumber int     `json:"followUpNumber"`
	ExpectedAction string  `json:"expectedAction"`
	ExpectedGMV    float64 `json:"expectedGmv"`
}

func (e *ClosureFollowUp) Base() EventBase           { return e.EventBase }
func (e *ClosureFollowUp) SubTask() SubTask          { return SubTaskClosureFollowUp }
func (e *ClosureFollowUp) Task() Task                { return TaskAdvanceMeeting }
func (e *ClosureFollowUp) ExpectedGMVValue() float64 { return e.ExpectedGMV }

func NewClosureFollowUp(base EventBase, e ClosureFollowUp) (*ClosureFollowUp, error) {
	if e.ExpectedAction == "" {
		return nil, apperr.Validation("expected action is required")
	}
	if e.FollowUpNumber < 1 {
		return nil, apperr.Validation("follow up number must be at least 1")
	}
	if e.ExpectedGMV <= 0 {
		return nil, apperr.Validation("expected GMV must be positive")
	}
	e.EventBase = base
	return &e, nil
}

// ClosureMeeting records the closure meeting where the booking amount is
// collected. Carries no next-step fields.
type ClosureMeeting struct {
	EventBase
	ConfirmationMethod []string `json:"confirmationMethod"`
	FinalGMV           float64  `json:"finalGmv"`
}

func (e *ClosureMeeting) Base() EventBase  { return e.EventBase }
func (e *ClosureMeeting) SubTask() SubTask { return SubTaskClosureMeetingBACollection }
func (e *ClosureMeeting) Task() Task       { return TaskClosure }

func NewClosureMeeting(base EventBase, e ClosureMeeting) (*ClosureMeeting, error) {
	if len(e.ConfirmationMethod) == 0 {
		return nil, apperr.Validation("at least one confirmation method is required")
	}
	if e.FinalGMV <= 0 {
		return nil, apperr.Validation("final GMV must be positive")
	}
	base.NextStepBrief = ""
	base.NextStepEta = ""
	e.EventBase = base
	return &e, nil
}

// PostClosureFollowUp records the final post-closure touchpoint. Carries no
// next-step fields.
type PostClosureFollowUp struct {
	EventBase
	Agenda string `json:"agenda,omitempty"`
}

func (e *PostClosureFollowUp) Base() EventBase  { return e.EventBase }
func (e *PostClosureFollowUp) SubTask() SubTask { return SubTaskPostClosureFollowUp }
func (e *PostClosureFollowUp) Task() Task       { return TaskClosure }

func NewPostClosureFollowUp(base EventBase, e PostClosureFollowUp) (*PostClosureFollowUp, error) {
	base.NextStepBrief = ""
	base.NextStepEta = ""
	e.EventBase = base
	return &e, nil
}
