package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"flowtrack/internal/journey/domain"
	"flowtrack/internal/journey/repository"
	"flowtrack/internal/journey/service"
	"flowtrack/internal/journey/transport"
	"flowtrack/platform/events"
	"flowtrack/platform/httpkit"
	"flowtrack/platform/logger"
	"flowtrack/platform/validator"
)

// memRepo is an in-memory repository.Journeys for routing tests.
type memRepo struct {
	journeys map[string]*domain.CustomerJourney
}

func newMemRepo() *memRepo {
	return &memRepo{journeys: make(map[string]*domain.CustomerJourney)}
}

func (m *memRepo) Exists(_ context.Context, crn string) (bool, error) {
	_, ok := m.journeys[crn]
	return ok, nil
}

func (m *memRepo) Tracked(_ context.Context, crn string) (bool, error) {
	_, ok := m.journeys[crn]
	return ok, nil
}

func (m *memRepo) Stage(_ context.Context, crn string) (domain.StagePointer, bool, error) {
	j, ok := m.journeys[crn]
	if !ok {
		return domain.StagePointer{}, false, repository.ErrNotFound
	}
	return j.CurrentStage, j.IsClosed, nil
}

func (m *memRepo) ListCRNs(_ context.Context) ([]string, error) {
	crns := make([]string, 0, len(m.journeys))
	for crn := range m.journeys {
		crns = append(crns, crn)
	}
	return crns, nil
}

func (m *memRepo) Get(_ context.Context, crn string) (*domain.CustomerJourney, error) {
	j, ok := m.journeys[crn]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *j
	copied.History = append([]domain.StageEvent(nil), j.History...)
	copied.RecomputeGMV()
	return &copied, nil
}

func (m *memRepo) List(ctx context.Context) ([]*domain.CustomerJourney, error) {
	crns, _ := m.ListCRNs(ctx)
	out := make([]*domain.CustomerJourney, 0, len(crns))
	for _, crn := range crns {
		j, err := m.Get(ctx, crn)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (m *memRepo) SaveNew(_ context.Context, journey *domain.CustomerJourney) error {
	m.journeys[journey.CRN] = journey
	return nil
}

func (m *memRepo) SaveSubmission(_ context.Context, journey *domain.CustomerJourney, _ domain.StageEvent) error {
	m.journeys[journey.CRN] = journey
	return nil
}

// testAuth stamps a fixed identity the way the JWT middleware would.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextEmailKey, "os@bnb.in")
		c.Next()
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *memRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("test")
	repo := newMemRepo()
	svc := service.New(repo, events.NewInMemoryBus(log), log)
	h := New(svc, validator.New())

	engine := gin.New()
	group := engine.Group("/api/v1/journeys", testAuth())
	h.RegisterRoutes(group)
	return engine, repo
}

// journeyBody mirrors transport.JourneyResponse with history kept raw, since
// stage events decode to concrete variants, not the interface.
type journeyBody struct {
	CRN          string                  `json:"crn"`
	City         string                  `json:"city"`
	CurrentStage transport.StageResponse `json:"currentStage"`
	IsClosed     bool                    `json:"isClosed"`
	QuotedGMV    *float64                `json:"quotedGmv"`
	FinalGMV     *float64                `json:"finalGmv"`
	History      []json.RawMessage       `json:"history"`
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestInitiateCreatesJourney(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/journeys/crn301", transport.InitiateRequest{
		City:         "BLR",
		CustomerName: "Asha Rao",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp journeyBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CRN != "CRN301" {
		t.Errorf("crn = %q, want CRN301", resp.CRN)
	}
	if resp.CurrentStage.Task != string(domain.TaskRecce) || resp.CurrentStage.SubTask != string(domain.SubTaskRecceFormSubmission) {
		t.Errorf("stage = %+v", resp.CurrentStage)
	}
}

func TestInitiateRejectsMissingCity(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/journeys/crn302", transport.InitiateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitAdvancesStage(t *testing.T) {
	engine, _ := newTestRouter(t)

	if rec := doJSON(t, engine, http.MethodPost, "/api/v1/journeys/crn303", transport.InitiateRequest{City: "BLR"}); rec.Code != http.StatusCreated {
		t.Fatalf("initiate status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodPut, "/api/v1/journeys/crn303/submissions", transport.SubmitEventRequest{
		SubTask:              string(domain.SubTaskRecceFormSubmission),
		DateOfRecce:          "2026-02-10",
		Attendee:             "Asha Rao",
		ProjectStartTimeline: "Q2",
		ExpectedGMV:          4000000,
		ExpectedClosureDate:  "2026-06-30",
		NextStepBrief:        "send BOQ",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp journeyBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CurrentStage.SubTask != string(domain.SubTaskPostRecceFollowUp) {
		t.Errorf("subTask = %q, want %q", resp.CurrentStage.SubTask, domain.SubTaskPostRecceFollowUp)
	}
	if resp.QuotedGMV == nil || *resp.QuotedGMV != 4000000 {
		t.Errorf("quotedGmv = %v, want 4000000", resp.QuotedGMV)
	}
	if len(resp.History) != 1 {
		t.Errorf("history length = %d, want 1", len(resp.History))
	}
}

func TestSubmitUnknownCRNReturns404(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPut, "/api/v1/journeys/missing/submissions", transport.SubmitEventRequest{
		SubTask: string(domain.SubTaskRecceFormSubmission),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.New("test")
	svc := service.New(newMemRepo(), events.NewInMemoryBus(log), log)
	h := New(svc, validator.New())

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1/journeys")) // no auth middleware

	rec := doJSON(t, engine, http.MethodPut, "/api/v1/journeys/crn304/submissions", transport.SubmitEventRequest{
		SubTask: string(domain.SubTaskRecceFormSubmission),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGetStage(t *testing.T) {
	engine, _ := newTestRouter(t)

	if rec := doJSON(t, engine, http.MethodPost, "/api/v1/journeys/crn305", transport.InitiateRequest{City: "BLR"}); rec.Code != http.StatusCreated {
		t.Fatalf("initiate status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/journeys/crn305/stage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stage transport.StageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stage); err != nil {
		t.Fatal(err)
	}
	if stage.Task != string(domain.TaskRecce) {
		t.Errorf("task = %q", stage.Task)
	}
}

func TestListReturnsAllJourneys(t *testing.T) {
	engine, _ := newTestRouter(t)

	for _, crn := range []string{"crn306", "crn307"} {
		if rec := doJSON(t, engine, http.MethodPost, "/api/v1/journeys/"+crn, transport.InitiateRequest{City: "BLR"}); rec.Code != http.StatusCreated {
			t.Fatalf("initiate %s status = %d", crn, rec.Code)
		}
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/journeys", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var journeys []journeyBody
	if err := json.Unmarshal(rec.Body.Bytes(), &journeys); err != nil {
		t.Fatal(err)
	}
	if len(journeys) != 2 {
		t.Errorf("journeys = %d, want 2", len(journeys))
	}
}
