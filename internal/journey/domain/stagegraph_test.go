package domain

import "testing"

func TestSubTasksOrdering(t *testing.T) {
	tests := []struct {
		task Task
		want []SubTask
	}{
		{TaskRecce, []SubTask{SubTaskRecceFormSubmission, SubTaskPostRecceFollowUp}},
		{TaskTDDM, []SubTask{SubTaskTDDMInitialMeeting, SubTaskPostTDDMFollowUp}},
		{TaskAdvanceMeeting, []SubTask{SubTaskNegotiation, SubTaskSiteVisit, SubTaskAgreementDiscussion, SubTaskClosureFollowUp}},
		{TaskClosure, []SubTask{SubTaskClosureMeetingBACollection, SubTaskPostClosureFollowUp}},
	}

	for _, tc := range tests {
		got, err := SubTasks(tc.task)
		if err != nil {
			t.Fatalf("SubTasks(%q) returned error: %v", tc.task, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("SubTasks(%q) = %v, want %v", tc.task, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("SubTasks(%q)[%d] = %q, want %q", tc.task, i, got[i], tc.want[i])
			}
		}
	}
}

func TestSubTasksUnknownTask(t *testing.T) {
	if _, err := SubTasks(Task("Handover")); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestNextTaskOrdering(t *testing.T) {
	if next, ok := NextTask(TaskRecce); !ok || next != TaskTDDM {
		t.Errorf("NextTask(Recce) = %q, %v", next, ok)
	}
	if next, ok := NextTask(TaskTDDM); !ok || next != TaskAdvanceMeeting {
		t.Errorf("NextTask(TDDM) = %q, %v", next, ok)
	}
	if next, ok := NextTask(TaskAdvanceMeeting); !ok || next != TaskClosure {
		t.Errorf("NextTask(Advance Meeting) = %q, %v", next, ok)
	}
	if _, ok := NextTask(TaskClosure); ok {
		t.Error("NextTask(Closure) should report no successor")
	}
}

// Every SubTask of every Task advances to its right neighbor within the
// same Task (linear advance).
func TestNextStageLinearAdvance(t *testing.T) {
	for _, task := range Tasks() {
		subs, err := SubTasks(task)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < len(subs)-1; i++ {
			current := StagePointer{Task: task, SubTask: subs[i], City: "BLR"}
			next, closed, err := NextStage(current, subs[i])
			if err != nil {
				t.Fatalf("NextStage(%q, %q): %v", task, subs[i], err)
			}
			if closed {
				t.Fatalf("NextStage(%q, %q) reported closed", task, subs[i])
			}
			if next.Task != task || next.SubTask != subs[i+1] {
				t.Errorf("NextStage(%q, %q) = (%q, %q), want (%q, %q)",
					task, subs[i], next.Task, next.SubTask, task, subs[i+1])
			}
			if next.City != "BLR" {
				t.Errorf("city changed across transition: %q", next.City)
			}
		}
	}
}

// The last SubTask of every non-final Task rolls over to the first SubTask
// of the successor Task.
func TestNextStageTaskRollover(t *testing.T) {
	tasks := Tasks()
	for i := 0; i < len(tasks)-1; i++ {
		subs, _ := SubTasks(tasks[i])
		last := subs[len(subs)-1]
		nextSubs, _ := SubTasks(tasks[i+1])

		current := StagePointer{Task: tasks[i], SubTask: last, City: "BLR"}
		next, closed, err := NextStage(current, last)
		if err != nil {
			t.Fatalf("NextStage(%q, %q): %v", tasks[i], last, err)
		}
		if closed {
			t.Fatalf("rollover from %q reported closed", tasks[i])
		}
		if next.Task != tasks[i+1] || next.SubTask != nextSubs[0] {
			t.Errorf("NextStage(%q, %q) = (%q, %q), want (%q, %q)",
				tasks[i], last, next.Task, next.SubTask, tasks[i+1], nextSubs[0])
		}
	}
}

// Completing the last SubTask of Closure closes the journey and leaves the
// stage pointer unchanged.
func TestNextStageTerminalClosure(t *testing.T) {
	current := StagePointer{Task: TaskClosure, SubTask: SubTaskPostClosureFollowUp, City: "BLR"}
	next, closed, err := NextStage(current, SubTaskPostClosureFollowUp)
	if err != nil {
		t.Fatal(err)
	}
	if !closed {
		t.Fatal("expected terminal transition to report closed")
	}
	if next != current {
		t.Errorf("terminal transition moved the pointer: %+v", next)
	}
}

func TestNextStageRejectsForeignSubTask(t *testing.T) {
	current := StagePointer{Task: TaskRecce, SubTask: SubTaskRecceFormSubmission, City: "BLR"}
	if _, _, err := NextStage(current, SubTaskNegotiation); err == nil {
		t.Fatal("expected error for subtask from another task")
	}
}

func TestTaskOf(t *testing.T) {
	task, err := TaskOf(SubTaskAgreementDiscussion)
	if err != nil {
		t.Fatal(err)
	}
	if task != TaskAdvanceMeeting {
		t.Errorf("TaskOf(Agreement Discussion) = %q", task)
	}

	if _, err := TaskOf(SubTask("Warranty Visit")); err == nil {
		t.Fatal("expected error for unknown subtask")
	}
}

func TestParseSubTask(t *testing.T) {
	task, subTask, err := ParseSubTask("Closure Meeting (BA Collection)")
	if err != nil {
		t.Fatal(err)
	}
	if task != TaskClosure || subTask != SubTaskClosureMeetingBACollection {
		t.Errorf("ParseSubTask = (%q, %q)", task, subTask)
	}
}
