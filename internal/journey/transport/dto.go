package transport

import (
	"time"

	"flowtrack/internal/journey/domain"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// InitiateRequest is the request body for starting a new customer journey.
type InitiateRequest struct {
	City          string  `json:"city" validate:"required,min=1,max=100"`
	CustomerName  string  `json:"customerName" validate:"omitempty,max=200"`
	CustomerEmail string  `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string  `json:"customerPhone" validate:"omitempty,max=32"`
	GMV           float64 `json:"gmv" validate:"omitempty,min=0"`
}

// SubmitEventRequest is the flat request body for recording one stage
// submission. SubTask selects the variant; only the fields that variant
// requires are read, everything else is ignored.
type SubmitEventRequest struct {
	SubTask       string `json:"subTask" validate:"required"`
	NextStepBrief string `json:"nextStepBrief" validate:"omitempty,max=2000"`
	NextStepEta   string `json:"nextStepEta" validate:"omitempty,max=100"`
	Files         string `json:"files" validate:"omitempty,url"`

	// Recce Form Submission
	DateOfRecce             string  `json:"dateOfRecce,omitempty"`
	Attendee                string  `json:"attendee,omitempty"`
	RecceTemplateURL        string  `json:"recceTemplateUrl,omitempty" validate:"omitempty,url"`
	ProjectStartTimeline    string  `json:"projectStartTimeline,omitempty"`
	ExpectedGMV             float64 `json:"expectedGmv,omitempty" validate:"omitempty,min=0"`
	HasDrawing              bool    `json:"hasDrawing,omitempty"`
	DrawingFile             string  `json:"drawingFile,omitempty" validate:"omitempty,url"`
	ArchitecturalPreference string  `json:"architecturalPreference,omitempty"`
	SiteConditionNotes      string  `json:"siteConditionNotes,omitempty"`
	ExpectedClosureDate     string  `json:"expectedClosureDate,omitempty"`

	// Follow ups (recce, TDDM, closure)
	ExpectedAction string `json:"expectedAction,omitempty"`
	MOM            string `json:"mom,omitempty"`

	// TDDM Initial Meeting
	TDDMDate                 string `json:"tddmDate,omitempty"`
	MeetingLocation          string `json:"meetingLocation,omitempty"`
	Attendance               string `json:"attendance,omitempty"`
	AttendeeBNB              string `json:"attendeeBnb,omitempty"`
	OSEmail                  string `json:"osEmail,omitempty" validate:"omitempty,email"`
	Duration                 string `json:"duration,omitempty"`
	DrawingShared            bool   `json:"drawingShared,omitempty"`
	BOQShared                bool   `json:"boqShared,omitempty"`
	ByeLawsDiscussed         bool   `json:"byeLawsDiscussed,omitempty"`
	SampleFlowPlansDiscussed bool   `json:"sampleFlowPlansDiscussed,omitempty"`
	ROIDiscussed             bool   `json:"roiDiscussed,omitempty"`
	CustomerLikes            string `json:"customerLikes,omitempty"`

	// Negotiation
	KeyConcern         string `json:"keyConcern,omitempty"`
	SolutionRecommends string `json:"solutionRecommends,omitempty"`

	// Site Visit
	SiteVisitDate string `json:"siteVisitDate,omitempty"`
	Attendees     string `json:"attendees,omitempty"`

	// Agreement Discussion
	AgreementShared     bool   `json:"agreementShared,omitempty"`
	ExpectedSigningDate string `json:"expectedSigningDate,omitempty"`
	ConcernsRaised      string `json:"concernsRaised,omitempty"`

	// Closure Meeting
	ConfirmationMethod []string `json:"confirmationMethod,omitempty"`
	FinalGMV           float64  `json:"finalGmv,omitempty" validate:"omitempty,min=0"`

	// Post-Closure Follow Up
	Agenda string `json:"agenda,omitempty"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// StageResponse names a (task, sub task) position in the pipeline.
type StageResponse struct {
	Task    string `json:"task"`
	SubTask string `json:"subTask"`
	City    string `json:"city,omitempty"`
}

// JourneyResponse is the API representation of one customer journey.
type JourneyResponse struct {
	CRN               string              `json:"crn"`
	City              string              `json:"city"`
	CustomerName      string              `json:"customerName,omitempty"`
	CustomerEmail     string              `json:"customerEmail,omitempty"`
	CustomerPhone     string              `json:"customerPhone,omitempty"`
	CurrentStage      StageResponse       `json:"currentStage"`
	IsClosed          bool                `json:"isClosed"`
	QuotedGMV         *float64            `json:"quotedGmv,omitempty"`
	FinalGMV          *float64            `json:"finalGmv,omitempty"`
	History           []domain.StageEvent `json:"history"`
	CreatedAt         time.Time           `json:"createdAt"`
	NotificationError string              `json:"notificationError,omitempty"`
}

// NewJourneyResponse maps a domain journey to its API shape.
func NewJourneyResponse(j *domain.CustomerJourney) *JourneyResponse {
	history := j.History
	if history == nil {
		history = []domain.StageEvent{}
	}
	return &JourneyResponse{
		CRN:           j.CRN,
		City:          j.City,
		CustomerName:  j.CustomerName,
		CustomerEmail: j.CustomerEmail,
		CustomerPhone: j.CustomerPhone,
		CurrentStage: StageResponse{
			Task:    string(j.CurrentStage.Task),
			SubTask: string(j.CurrentStage.SubTask),
			City:    j.CurrentStage.City,
		},
		IsClosed:  j.IsClosed,
		QuotedGMV: j.QuotedGMV,
		FinalGMV:  j.FinalGMV,
		History:   history,
		CreatedAt: j.CreatedAt,
	}
}
