// Package domain provides core business rules for the customer journey
// bounded context: the fixed stage graph, the stage event model, and the
// transition function that advances a journey through it.
package domain

import (
	"fmt"

	"flowtrack/platform/apperr"
)

// Task is one of the four fixed sales journey stages. String values match
// the product labels and are used as-is on the wire and in storage.
type Task string

const (
	TaskRecce          Task = "Recce"
	TaskTDDM           Task = "TDDM"
	TaskAdvanceMeeting Task = "Advance Meeting"
	TaskClosure        Task = "Closure"
)

// SubTask is a step within a Task. Each SubTask belongs to exactly one Task.
type SubTask string

const (
	SubTaskRecceFormSubmission SubTask = "Recce Form Submission"
	SubTaskPostRecceFollowUp   SubTask = "Post Recce Follow Up"

	SubTaskTDDMInitialMeeting SubTask = "TDDM Initial Meeting"
	SubTaskPostTDDMFollowUp   SubTask = "Post TDDM Follow Up"

	SubTaskNegotiation         SubTask = "Negotiation"
	SubTaskSiteVisit           SubTask = "Site Visit"
	SubTaskAgreementDiscussion SubTask = "Agreement Discussion"
	SubTaskClosureFollowUp     SubTask = "Closure Follow Up"

	SubTaskClosureMeetingBACollection SubTask = "Closure Meeting (BA Collection)"
	SubTaskPostClosureFollowUp        SubTask = "Post-Closure Follow Up"
)

// taskOrder is the total ordering over Tasks.
var taskOrder = []Task{TaskRecce, TaskTDDM, TaskAdvanceMeeting, TaskClosure}

// subTasksByTask maps each Task to its ordered, non-empty SubTask sequence.
var subTasksByTask = map[Task][]SubTask{
	TaskRecce:          {SubTaskRecceFormSubmission, SubTaskPostRecceFollowUp},
	TaskTDDM:           {SubTaskTDDMInitialMeeting, SubTaskPostTDDMFollowUp},
	TaskAdvanceMeeting: {SubTaskNegotiation, SubTaskSiteVisit, SubTaskAgreementDiscussion, SubTaskClosureFollowUp},
	TaskClosure:        {SubTaskClosureMeetingBACollection, SubTaskPostClosureFollowUp},
}

// Tasks returns all Tasks in journey order.
func Tasks() []Task {
	out := make([]Task, len(taskOrder))
	copy(out, taskOrder)
	return out
}

// SubTasks returns the ordered SubTask list for a Task. An unknown task
// (possible when the value came off the wire or out of storage) is an error.
func SubTasks(task Task) ([]SubTask, error) {
	subs, ok := subTasksByTask[task]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown stage %q", task))
	}
	out := make([]SubTask, len(subs))
	copy(out, subs)
	return out, nil
}

// NextTask returns the successor of task in the total order, or false when
// task is the last one.
func NextTask(task Task) (Task, bool) {
	for i, t := range taskOrder {
		if t == task && i < len(taskOrder)-1 {
			return taskOrder[i+1], true
		}
	}
	return "", false
}

// FirstStage is where a brand-new journey starts.
func FirstStage() (Task, SubTask) {
	return TaskRecce, SubTaskRecceFormSubmission
}

// MigratedStage is where a legacy record without stage tracking is seeded:
// its Recce phase predates tracking, so it enters at the TDDM meeting.
func MigratedStage() (Task, SubTask) {
	return TaskTDDM, SubTaskTDDMInitialMeeting
}

// TaskOf returns the Task owning the given SubTask.
func TaskOf(subTask SubTask) (Task, error) {
	for _, task := range taskOrder {
		for _, st := range subTasksByTask[task] {
			if st == subTask {
				return task, nil
			}
		}
	}
	return "", apperr.Validation(fmt.Sprintf("unknown subtask %q", subTask))
}

// ParseTask validates a raw task string.
func ParseTask(raw string) (Task, error) {
	task := Task(raw)
	if _, ok := subTasksByTask[task]; !ok {
		return "", apperr.Validation(fmt.Sprintf("unknown stage %q", raw))
	}
	return task, nil
}

// ParseSubTask validates a raw subtask string and returns it with its Task.
func ParseSubTask(raw string) (Task, SubTask, error) {
	task, err := TaskOf(SubTask(raw))
	if err != nil {
		return "", "", err
	}
	return task, SubTask(raw), nil
}

// StagePointer identifies where in the journey a customer currently is.
type StagePointer struct {
	Task    Task    `json:"task"`
	SubTask SubTask `json:"subTask"`
	City    string  `json:"city"`
}

// StageRef is a StagePointer bound to a specific customer record.
type StageRef struct {
	Task    Task    `json:"task"`
	SubTask SubTask `json:"subTask"`
	CRN     string  `json:"crn"`
	City    string  `json:"city"`
}

// Pointer strips the customer binding from a StageRef.
func (r StageRef) Pointer() StagePointer {
	return StagePointer{Task: r.Task, SubTask: r.SubTask, City: r.City}
}

// NextStage computes the stage that follows completing completed while at
// current. The walk is strictly linear: advance to the next SubTask of the
// same Task, roll over to the first SubTask of the successor Task, or - when
// the last SubTask of the last Task completes - report the journey closed
// (current stays unchanged).
//
// A completed SubTask that does not belong to current.Task is a contract
// violation and is rejected.
func NextStage(current StagePointer, completed SubTask) (next StagePointer, closed bool, err error) {
	subs, err := SubTasks(current.Task)
	if err != nil {
		return StagePointer{}, false, err
	}

	idx := -1
	for i, st := range subs {
		if st == completed {
			idx = i
			break
		}
	}
	if idx < 0 {
		return StagePointer{}, false, apperr.BadRequest(
			fmt.Sprintf("subtask %q does not belong to stage %q", completed, current.Task))
	}

	if idx < len(subs)-1 {
		return StagePointer{Task: current.Task, SubTask: subs[idx+1], City: current.City}, false, nil
	}

	successor, ok := NextTask(current.Task)
	if !ok {
		// End of journey: stage freezes, journey closes.
		return current, true, nil
	}

	firstSubs := subTasksByTask[successor]
	return StagePointer{Task: successor, SubTask: firstSubs[0], City: current.City}, false, nil
}
