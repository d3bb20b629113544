package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNewEventBaseIDUniquePerCustomer(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 1, time.UTC)
	stageA := StageRef{Task: TaskRecce, SubTask: SubTaskRecceFormSubmission, CRN: "CRN600", City: "BLR"}
	stageB := StageRef{Task: TaskRecce, SubTask: SubTaskRecceFormSubmission, CRN: "CRN601", City: "BLR"}

	a := NewEventBase(stageA, "os@bnb.in", now)
	b := NewEventBase(stageB, "os@bnb.in", now)

	// Two customers submitting in the same instant must not share an id.
	if a.ID == b.ID {
		t.Fatalf("colliding event ids: %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, now.Format(time.RFC3339Nano)) {
		t.Errorf("id = %q, want creation-time prefix", a.ID)
	}
	if !strings.HasSuffix(a.ID, "_CRN600") {
		t.Errorf("id = %q, want CRN suffix", a.ID)
	}
	if !a.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v", a.Timestamp)
	}
}
