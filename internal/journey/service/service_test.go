package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"flowtrack/internal/journey/domain"
	"flowtrack/internal/journey/repository"
	"flowtrack/internal/journey/transport"
	"flowtrack/internal/notifier"
	"flowtrack/platform/apperr"
	"flowtrack/platform/events"
	"flowtrack/platform/logger"
)

// fakeRepo keeps journeys in memory and replays them through the same
// pointer / history split the database uses.
type fakeRepo struct {
	journeys    map[string]*domain.CustomerJourney
	noPointer   map[string]bool // simulate legacy records without a stage pointer
	saveErr     error
	submissions int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		journeys:  make(map[string]*domain.CustomerJourney),
		noPointer: make(map[string]bool),
	}
}

func (f *fakeRepo) Exists(_ context.Context, crn string) (bool, error) {
	_, ok := f.journeys[crn]
	return ok, nil
}

func (f *fakeRepo) Tracked(_ context.Context, crn string) (bool, error) {
	_, ok := f.journeys[crn]
	return ok && !f.noPointer[crn], nil
}

func (f *fakeRepo) Stage(_ context.Context, crn string) (domain.StagePointer, bool, error) {
	j, ok := f.journeys[crn]
	if !ok {
		return domain.StagePointer{}, false, repository.ErrNotFound
	}
	if f.noPointer[crn] {
		task, subTask := domain.MigratedStage()
		return domain.StagePointer{Task: task, SubTask: subTask, City: j.City}, false, nil
	}
	return j.CurrentStage, j.IsClosed, nil
}

func (f *fakeRepo) ListCRNs(_ context.Context) ([]string, error) {
	crns := make([]string, 0, len(f.journeys))
	for crn := range f.journeys {
		crns = append(crns, crn)
	}
	return crns, nil
}

func (f *fakeRepo) Get(_ context.Context, crn string) (*domain.CustomerJourney, error) {
	j, ok := f.journeys[crn]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *j
	copied.History = append([]domain.StageEvent(nil), j.History...)
	if f.noPointer[crn] {
		copied.CurrentStage, copied.IsClosed = domain.DeriveStage(copied.History, copied.City)
	}
	copied.RecomputeGMV()
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]*domain.CustomerJourney, error) {
	crns, _ := f.ListCRNs(ctx)
	out := make([]*domain.CustomerJourney, 0, len(crns))
	for _, crn := range crns {
		j, err := f.Get(ctx, crn)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeRepo) SaveNew(_ context.Context, journey *domain.CustomerJourney) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.journeys[journey.CRN] = journey
	delete(f.noPointer, journey.CRN)
	return nil
}

func (f *fakeRepo) SaveSubmission(_ context.Context, journey *domain.CustomerJourney, _ domain.StageEvent) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.journeys[journey.CRN] = journey
	f.submissions++
	return nil
}

type fakeSender struct {
	payloads []notifier.TDDMNotification
	err      error
}

func (f *fakeSender) SendTDDM(_ context.Context, payload notifier.TDDMNotification) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeEnqueuer struct {
	enqueued []notifier.TDDMNotification
	err      error
}

func (f *fakeEnqueuer) EnqueueTDDMWebhook(_ context.Context, payload notifier.TDDMNotification) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, payload)
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	log := logger.New("test")
	svc := New(repo, events.NewInMemoryBus(log), log)
	svc.now = func() time.Time { return time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC) }
	return svc
}

func initiateReq() transport.InitiateRequest {
	return transport.InitiateRequest{
		City:          "BLR",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "+919876543210",
		GMV:           2500000,
	}
}

func recceReq() transport.SubmitEventRequest {
	return transport.SubmitEventRequest{
		SubTask:              string(domain.SubTaskRecceFormSubmission),
		DateOfRecce:          "2026-02-09",
		Attendee:             "Asha Rao",
		ProjectStartTimeline: "3-6 M",
		ExpectedGMV:          5000000,
		HasDrawing:           true,
		ExpectedClosureDate:  "2026-08-01",
		NextStepBrief:        "share BOQ",
		NextStepEta:          "2026-02-15",
	}
}

func tddmReq() transport.SubmitEventRequest {
	return transport.SubmitEventRequest{
		SubTask:             string(domain.SubTaskTDDMInitialMeeting),
		TDDMDate:            "2026-03-01",
		MeetingLocation:     "Experience Center",
		Attendance:          "Asha Rao",
		AttendeeBNB:         "Design Lead",
		Duration:            "90 min",
		ExpectedClosureDate: "2026-08-01",
		ExpectedGMV:         5200000,
		DrawingShared:       true,
	}
}

func TestInitiateCreatesJourneyAtFirstStage(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	resp, err := svc.Initiate(context.Background(), "crn100", initiateReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.CRN != "CRN100" {
		t.Errorf("CRN = %q, want CRN100", resp.CRN)
	}
	if resp.CurrentStage.Task != string(domain.TaskRecce) || resp.CurrentStage.SubTask != string(domain.SubTaskRecceFormSubmission) {
		t.Errorf("initial stage = %+v", resp.CurrentStage)
	}
	if len(resp.History) != 0 {
		t.Errorf("initial history length = %d", len(resp.History))
	}
}

func TestInitiateIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	ctx := context.Background()
	if _, err := svc.Initiate(ctx, "CRN100", initiateReq()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordSubmission(ctx, "CRN100", "os@bnb.in", recceReq()); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Initiate(ctx, "CRN100", initiateReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.CurrentStage.SubTask != string(domain.SubTaskPostRecceFollowUp) {
		t.Errorf("re-initiate must not reset the journey, stage = %+v", resp.CurrentStage)
	}
	if len(resp.History) != 1 {
		t.Errorf("re-initiate must not touch history, got %d events", len(resp.History))
	}
}

func TestRecordSubmissionAdvancesStage(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN101", initiateReq()); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.RecordSubmission(ctx, "CRN101", "os@bnb.in", recceReq())
	if err != nil {
		t.Fatal(err)
	}

	if resp.CurrentStage.SubTask != string(domain.SubTaskPostRecceFollowUp) {
		t.Errorf("stage after recce = %+v", resp.CurrentStage)
	}
	if resp.QuotedGMV == nil || *resp.QuotedGMV != 5000000 {
		t.Errorf("quotedGmv = %v", resp.QuotedGMV)
	}
	if repo.submissions != 1 {
		t.Errorf("submissions persisted = %d", repo.submissions)
	}
}

func TestRecordSubmissionRejectsWrongStage(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN102", initiateReq()); err != nil {
		t.Fatal(err)
	}

	_, err := svc.RecordSubmission(ctx, "CRN102", "os@bnb.in", tddmReq())
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("wrong-stage submission: got %v", err)
	}
	if repo.submissions != 0 {
		t.Errorf("rejected submission persisted")
	}
}

func TestRecordSubmissionRejectsClosedJourney(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN103", initiateReq()); err != nil {
		t.Fatal(err)
	}
	repo.journeys["CRN103"].IsClosed = true

	_, err := svc.RecordSubmission(ctx, "CRN103", "os@bnb.in", recceReq())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("closed journey submission: got %v", err)
	}
}

func TestRecordSubmissionUnknownCRN(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.RecordSubmission(context.Background(), "NOPE", "os@bnb.in", recceReq())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown CRN: got %v", err)
	}
}

func TestFollowUpOrdinalsCountFromHistory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN104", initiateReq()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordSubmission(ctx, "CRN104", "os@bnb.in", recceReq()); err != nil {
		t.Fatal(err)
	}

	// The request carries no follow up number; the service derives it.
	followUp := transport.SubmitEventRequest{
		SubTask:        string(domain.SubTaskPostRecceFollowUp),
		ExpectedAction: "confirm timeline",
	}
	resp, err := svc.RecordSubmission(ctx, "CRN104", "os@bnb.in", followUp)
	if err != nil {
		t.Fatal(err)
	}

	last := resp.History[len(resp.History)-1]
	fu, ok := last.(*domain.PostRecceFollowUp)
	if !ok {
		t.Fatalf("last event is %T", last)
	}
	if fu.FollowUpNumber != 1 {
		t.Errorf("followUpNumber = %d, want 1", fu.FollowUpNumber)
	}
}

func TestTDDMSubmissionEnqueuesWebhook(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	enq := &fakeEnqueuer{}
	snd := &fakeSender{}
	svc.SetWebhookDelivery(enq, snd)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN105", initiateReq()); err != nil {
		t.Fatal(err)
	}
	repo.journeys["CRN105"].CurrentStage = domain.StagePointer{
		Task: domain.TaskTDDM, SubTask: domain.SubTaskTDDMInitialMeeting, City: "BLR",
	}

	resp, err := svc.RecordSubmission(ctx, "CRN105", "os@bnb.in", tddmReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.NotificationError != "" {
		t.Errorf("unexpected notification error: %s", resp.NotificationError)
	}
	if len(enq.enqueued) != 1 {
		t.Fatalf("enqueued webhooks = %d, want 1", len(enq.enqueued))
	}
	if len(snd.payloads) != 0 {
		t.Errorf("direct sender used despite working queue")
	}
	payload := enq.enqueued[0]
	if payload.CRN != "CRN105" || payload.TDDMDate != "2026-03-01" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.CustomerPhone != "+919876543210" {
		t.Errorf("customerPhone = %q", payload.CustomerPhone)
	}
}

func TestNonTDDMSubmissionSkipsWebhook(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	enq := &fakeEnqueuer{}
	snd := &fakeSender{}
	svc.SetWebhookDelivery(enq, snd)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN109", initiateReq()); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.RecordSubmission(ctx, "CRN109", "os@bnb.in", recceReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.NotificationError != "" {
		t.Errorf("unexpected notification error: %s", resp.NotificationError)
	}
	if len(enq.enqueued) != 0 {
		t.Errorf("enqueued webhooks = %d, want 0", len(enq.enqueued))
	}
	if len(snd.payloads) != 0 {
		t.Errorf("sent webhooks = %d, want 0", len(snd.payloads))
	}
}

func TestTDDMWebhookFallsBackToDirectSend(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	snd := &fakeSender{}
	svc.SetWebhookDelivery(enq, snd)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN106", initiateReq()); err != nil {
		t.Fatal(err)
	}
	repo.journeys["CRN106"].CurrentStage = domain.StagePointer{
		Task: domain.TaskTDDM, SubTask: domain.SubTaskTDDMInitialMeeting, City: "BLR",
	}

	resp, err := svc.RecordSubmission(ctx, "CRN106", "os@bnb.in", tddmReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.NotificationError != "" {
		t.Errorf("fallback delivery should succeed, got %s", resp.NotificationError)
	}
	if len(snd.payloads) != 1 {
		t.Errorf("direct sends = %d, want 1", len(snd.payloads))
	}
}

func TestTDDMWebhookFailureIsAWarningNotAnError(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	snd := &fakeSender{err: errors.New("endpoint returned 500")}
	svc.SetWebhookDelivery(nil, snd)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN107", initiateReq()); err != nil {
		t.Fatal(err)
	}
	repo.journeys["CRN107"].CurrentStage = domain.StagePointer{
		Task: domain.TaskTDDM, SubTask: domain.SubTaskTDDMInitialMeeting, City: "BLR",
	}

	resp, err := svc.RecordSubmission(ctx, "CRN107", "os@bnb.in", tddmReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.NotificationError == "" {
		t.Error("expected a notification warning on the response")
	}
	if resp.CurrentStage.SubTask != string(domain.SubTaskPostTDDMFollowUp) {
		t.Errorf("submission must still advance the stage, got %+v", resp.CurrentStage)
	}
}

func TestAllJourneysDerivesStageForLegacyRecords(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN108", initiateReq()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordSubmission(ctx, "CRN108", "os@bnb.in", recceReq()); err != nil {
		t.Fatal(err)
	}
	repo.noPointer["CRN108"] = true

	journeys, err := svc.AllJourneys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(journeys) != 1 {
		t.Fatalf("journeys = %d", len(journeys))
	}
	if journeys[0].CurrentStage.SubTask != string(domain.SubTaskPostRecceFollowUp) {
		t.Errorf("derived stage = %+v", journeys[0].CurrentStage)
	}
}

func TestCurrentStageSeedsLegacyRecordAtTDDM(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	// Legacy contact record: profile only, no stage pointer, no history.
	repo.journeys["CRN999"] = domain.NewJourney("CRN999", domain.NewJourneyDetails{City: "BLR"}, time.Now())
	repo.noPointer["CRN999"] = true

	stage, err := svc.CurrentStage(ctx, "CRN999")
	if err != nil {
		t.Fatal(err)
	}
	if stage.Task != string(domain.TaskTDDM) || stage.SubTask != string(domain.SubTaskTDDMInitialMeeting) {
		t.Errorf("legacy stage = %+v, want TDDM seed", stage)
	}
}

func TestInitiateMigratesLegacyRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.journeys["CRN998"] = domain.NewJourney("CRN998", domain.NewJourneyDetails{City: "BLR"}, time.Now())
	repo.noPointer["CRN998"] = true

	resp, err := svc.Initiate(ctx, "CRN998", initiateReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.CurrentStage.Task != string(domain.TaskTDDM) || resp.CurrentStage.SubTask != string(domain.SubTaskTDDMInitialMeeting) {
		t.Errorf("migrated stage = %+v, want TDDM seed", resp.CurrentStage)
	}
	if repo.noPointer["CRN998"] {
		t.Error("initiate must persist the seeded stage pointer")
	}
}

func TestCurrentStage(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, "CRN109", initiateReq()); err != nil {
		t.Fatal(err)
	}

	stage, err := svc.CurrentStage(ctx, "crn109")
	if err != nil {
		t.Fatal(err)
	}
	if stage.Task != string(domain.TaskRecce) || stage.SubTask != string(domain.SubTaskRecceFormSubmission) {
		t.Errorf("stage = %+v", stage)
	}

	if _, err := svc.CurrentStage(ctx, "MISSING"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing CRN: got %v", err)
	}
}
