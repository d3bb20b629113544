package domain

import (
	"sort"
	"strings"
	"time"
)

// NewJourneyDetails are the caller-supplied customer fields for a brand-new
// journey.
type NewJourneyDetails struct {
	City          string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	GMV           float64
}

// CustomerJourney is the aggregate root for one customer's progress through
// the sales pipeline. History is append-only and chronologically ordered;
// the current stage pointer always names a valid (Task, SubTask) pair.
type CustomerJourney struct {
	CRN           string       `json:"crn"`
	City          string       `json:"city"`
	CustomerName  string       `json:"customerName,omitempty"`
	CustomerEmail string       `json:"customerEmail,omitempty"`
	CustomerPhone string       `json:"customerPhone,omitempty"`
	GMV           float64      `json:"gmv,omitempty"` // initial GMV from the profile
	History       []StageEvent `json:"history"`
	CurrentStage  StagePointer `json:"currentStage"`
	IsClosed      bool         `json:"isClosed"`
	QuotedGMV     *float64     `json:"quotedGmv,omitempty"`
	FinalGMV      *float64     `json:"finalGmv,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// NormalizeCRN uppercases a customer reference number. CRNs are
// case-normalized on entry and immutable once a journey exists.
func NormalizeCRN(crn string) string {
	return strings.ToUpper(strings.TrimSpace(crn))
}

// NewJourney creates a journey at the first stage with empty history.
func NewJourney(crn string, details NewJourneyDetails, now time.Time) *CustomerJourney {
	task, subTask := FirstStage()
	return &CustomerJourney{
		CRN:           NormalizeCRN(crn),
		City:          details.City,
		CustomerName:  details.CustomerName,
		CustomerEmail: details.CustomerEmail,
		CustomerPhone: details.CustomerPhone,
		GMV:           details.GMV,
		History:       []StageEvent{},
		CurrentStage:  StagePointer{Task: task, SubTask: subTask, City: details.City},
		CreatedAt:     now.UTC(),
	}
}

// MigratedJourney seeds a journey for a legacy profile record that predates
// stage tracking. It starts at the TDDM meeting with empty history.
func MigratedJourney(crn string, details NewJourneyDetails, createdAt time.Time) *CustomerJourney {
	task, subTask := MigratedStage()
	j := NewJourney(crn, details, createdAt)
	j.CurrentStage = StagePointer{Task: task, SubTask: subTask, City: details.City}
	return j
}

// NextOrdinal returns 1 + the count of prior events for the given subtask,
// providing the per-customer, per-subtask sequence counter.
func (j *CustomerJourney) NextOrdinal(subTask SubTask) int {
	n := 1
	for _, ev := range j.History {
		if ev.SubTask() == subTask {
			n++
		}
	}
	return n
}

// Append adds an event to history and advances the stage pointer via the
// transition function. On the terminal transition the journey closes and the
// pointer freezes.
func (j *CustomerJourney) Append(event StageEvent) error {
	next, closed, err := NextStage(j.CurrentStage, event.SubTask())
	if err != nil {
		return err
	}

	j.History = append(j.History, event)
	j.CurrentStage = next
	if closed {
		j.IsClosed = true
	}
	j.RecomputeGMV()
	return nil
}

// RecomputeGMV re-derives quoted and final GMV from history:
// quotedGmv is the most recent expectedGmv supplied by a Recce form
// submission, falling back to the profile's initial GMV; finalGmv is set
// exactly when a closure meeting (BA collection) event exists.
func (j *CustomerJourney) RecomputeGMV() {
	j.QuotedGMV = nil
	j.FinalGMV = nil

	for _, ev := range j.History {
		switch e := ev.(type) {
		case *RecceFormSubmission:
			if e.ExpectedGMV > 0 {
				gmv := e.ExpectedGMV
				j.QuotedGMV = &gmv
			}
		case *ClosureMeeting:
			gmv := e.FinalGMV
			j.FinalGMV = &gmv
		}
	}

	if j.QuotedGMV == nil && j.GMV > 0 {
		gmv := j.GMV
		j.QuotedGMV = &gmv
	}
}

// SortHistory orders history chronologically by event timestamp.
func (j *CustomerJourney) SortHistory() {
	sort.SliceStable(j.History, func(a, b int) bool {
		return j.History[a].Base().Timestamp.Before(j.History[b].Base().Timestamp)
	})
}

// DeriveStage reconstructs the current stage for a journey that has no
// tracked pointer (legacy data): apply the transition function to the last
// event of its sorted history, or fall back to the first stage when history
// is empty. Returns the derived pointer and whether the journey is closed.
func DeriveStage(history []StageEvent, city string) (StagePointer, bool) {
	if len(history) == 0 {
		task, subTask := FirstStage()
		return StagePointer{Task: task, SubTask: subTask, City: city}, false
	}

	last := history[len(history)-1]
	current := StagePointer{Task: last.Task(), SubTask: last.SubTask(), City: city}
	next, closed, err := NextStage(current, last.SubTask())
	if err != nil {
		return current, false
	}
	return next, closed
}
