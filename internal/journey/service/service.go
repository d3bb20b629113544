package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appevents "flowtrack/internal/events"
	"flowtrack/internal/journey/domain"
	"flowtrack/internal/journey/repository"
	"flowtrack/internal/journey/transport"
	"flowtrack/internal/notifier"
	"flowtrack/internal/scheduler"
	"flowtrack/platform/apperr"
	"flowtrack/platform/events"
	"flowtrack/platform/logger"
	"flowtrack/platform/phone"
)

// listConcurrency bounds the parallel journey loads during reconstruction.
const listConcurrency = 8

// Service implements the journey pipeline operations.
type Service struct {
	repo     repository.Journeys
	bus      events.Bus
	log      *logger.Logger
	enqueuer scheduler.WebhookEnqueuer // optional, nil means direct delivery only
	sender   notifier.Sender           // optional direct fallback
	locks    *keyedLocks
	now      func() time.Time
}

func New(repo repository.Journeys, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		bus:   bus,
		log:   log,
		locks: newKeyedLocks(),
		now:   time.Now,
	}
}

// SetWebhookDelivery injects the queue client and the direct sender. The
// queue is preferred; direct delivery is the fallback when enqueueing fails.
func (s *Service) SetWebhookDelivery(enqueuer scheduler.WebhookEnqueuer, sender notifier.Sender) {
	s.enqueuer = enqueuer
	s.sender = sender
}

// Initiate creates a journey for the CRN at the first pipeline stage. If the
// customer already exists the call is idempotent and returns the existing
// journey unchanged.
func (s *Service) Initiate(ctx context.Context, crn string, req transport.InitiateRequest) (*transport.JourneyResponse, error) {
	crn = domain.NormalizeCRN(crn)
	if crn == "" {
		return nil, apperr.BadRequest("CRN is required")
	}

	unlock := s.locks.Lock(crn)
	defer unlock()

	exists, err := s.repo.Exists(ctx, crn)
	if err != nil {
		return nil, fmt.Errorf("initiate %s: %w", crn, err)
	}
	if exists {
		journey, err := s.repo.Get(ctx, crn)
		if err != nil {
			return nil, fmt.Errorf("initiate %s: %w", crn, err)
		}
		tracked, err := s.repo.Tracked(ctx, crn)
		if err != nil {
			return nil, fmt.Errorf("initiate %s: %w", crn, err)
		}
		if tracked {
			return transport.NewJourneyResponse(journey), nil
		}

		// Untracked legacy record: its Recce phase predates stage tracking,
		// so it enters the pipeline at the TDDM meeting. Persisting the
		// pointer starts tracking from here on.
		if len(journey.History) == 0 {
			task, subTask := domain.MigratedStage()
			journey.CurrentStage = domain.StagePointer{Task: task, SubTask: subTask, City: journey.City}
		}
		if err := s.repo.SaveNew(ctx, journey); err != nil {
			return nil, fmt.Errorf("initiate %s: %w", crn, err)
		}
		s.log.JourneyEvent("journey_migrated", crn, string(journey.CurrentStage.Task), string(journey.CurrentStage.SubTask))
		return transport.NewJourneyResponse(journey), nil
	}

	details := domain.NewJourneyDetails{
		City:          req.City,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: phone.NormalizeE164(req.CustomerPhone),
		GMV:           req.GMV,
	}
	journey := domain.NewJourney(crn, details, s.now())

	if err := s.repo.SaveNew(ctx, journey); err != nil {
		return nil, fmt.Errorf("initiate %s: %w", crn, err)
	}

	s.bus.Publish(ctx, appevents.JourneyInitiated{
		BaseEvent: events.NewBaseEvent(),
		CRN:       crn,
		City:      journey.City,
	})

	journey.RecomputeGMV()
	return transport.NewJourneyResponse(journey), nil
}

// CurrentStage returns the pipeline position for one CRN without loading
// history, so it stays cheap for live lookups while a user types a CRN.
func (s *Service) CurrentStage(ctx context.Context, crn string) (*transport.StageResponse, error) {
	crn = domain.NormalizeCRN(crn)
	stage, _, err := s.repo.Stage(ctx, crn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("journey %s not found", crn))
	}
	if err != nil {
		return nil, fmt.Errorf("load stage for %s: %w", crn, err)
	}
	return &transport.StageResponse{
		Task:    string(stage.Task),
		SubTask: string(stage.SubTask),
		City:    stage.City,
	}, nil
}

// Journey returns the full reconstructed journey for one CRN.
func (s *Service) Journey(ctx context.Context, crn string) (*transport.JourneyResponse, error) {
	journey, err := s.getJourney(ctx, crn)
	if err != nil {
		return nil, err
	}
	return transport.NewJourneyResponse(journey), nil
}

// AllJourneys reconstructs every journey, loading histories in parallel.
// Order follows the customer list (newest profile first).
func (s *Service) AllJourneys(ctx context.Context) ([]*transport.JourneyResponse, error) {
	crns, err := s.repo.ListCRNs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}

	journeys := make([]*transport.JourneyResponse, len(crns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, crn := range crns {
		g.Go(func() error {
			journey, err := s.repo.Get(gctx, crn)
			if err != nil {
				return fmt.Errorf("load journey %s: %w", crn, err)
			}
			journeys[i] = transport.NewJourneyResponse(journey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return journeys, nil
}

// RecordSubmission validates and persists one stage submission, advancing
// the journey. The submission must target the journey's current sub task.
func (s *Service) RecordSubmission(ctx context.Context, crn, user string, req transport.SubmitEventRequest) (*transport.JourneyResponse, error) {
	crn = domain.NormalizeCRN(crn)

	unlock := s.locks.Lock(crn)
	defer unlock()

	journey, err := s.getJourney(ctx, crn)
	if err != nil {
		return nil, err
	}

	if journey.IsClosed {
		return nil, apperr.Conflict(fmt.Sprintf("journey %s is closed", crn))
	}

	_, subTask, err := domain.ParseSubTask(req.SubTask)
	if err != nil {
		return nil, err
	}
	if subTask != journey.CurrentStage.SubTask {
		return nil, apperr.BadRequest(fmt.Sprintf(
			"journey %s expects a %q submission, got %q", crn, journey.CurrentStage.SubTask, subTask))
	}

	event, err := s.buildEvent(journey, user, subTask, req)
	if err != nil {
		return nil, err
	}

	if err := journey.Append(event); err != nil {
		return nil, err
	}

	if err := s.repo.SaveSubmission(ctx, journey, event); err != nil {
		return nil, fmt.Errorf("record submission for %s: %w", crn, err)
	}

	s.bus.Publish(ctx, appevents.StageRecorded{
		BaseEvent: events.NewBaseEvent(),
		CRN:       crn,
		Task:      string(event.Task()),
		SubTask:   string(event.SubTask()),
		User:      user,
	})
	if journey.IsClosed {
		s.bus.Publish(ctx, appevents.JourneyClosed{
			BaseEvent: events.NewBaseEvent(),
			CRN:       crn,
			Task:      string(event.Task()),
			SubTask:   string(event.SubTask()),
			FinalGMV:  journey.FinalGMV,
		})
	}

	resp := transport.NewJourneyResponse(journey)
	if meeting, ok := event.(*domain.TDDMInitialMeeting); ok {
		if err := s.notifyTDDM(ctx, journey, meeting); err != nil {
			// Notification failure never fails the submission; the event is
			// already committed.
			s.log.WebhookEvent(crn, false, err.Error())
			resp.NotificationError = err.Error()
		}
		s.bus.Publish(ctx, appevents.TDDMMeetingRecorded{
			BaseEvent: events.NewBaseEvent(),
			CRN:       crn,
			City:      journey.City,
		})
	}
	return resp, nil
}

func (s *Service) getJourney(ctx context.Context, crn string) (*domain.CustomerJourney, error) {
	crn = domain.NormalizeCRN(crn)
	journey, err := s.repo.Get(ctx, crn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("journey %s not found", crn))
	}
	if err != nil {
		return nil, fmt.Errorf("load journey %s: %w", crn, err)
	}

	// An untracked legacy record with no history positions at the migrated
	// seed stage, matching what CurrentStage reports for it.
	if len(journey.History) == 0 && !journey.IsClosed {
		tracked, err := s.repo.Tracked(ctx, crn)
		if err != nil {
			return nil, fmt.Errorf("load journey %s: %w", crn, err)
		}
		if !tracked {
			task, subTask := domain.MigratedStage()
			journey.CurrentStage = domain.StagePointer{Task: task, SubTask: subTask, City: journey.City}
		}
	}
	return journey, nil
}

func (s *Service) notifyTDDM(ctx context.Context, journey *domain.CustomerJourney, meeting *domain.TDDMInitialMeeting) error {
	payload := notifier.BuildTDDMNotification(journey, meeting)

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueTDDMWebhook(ctx, payload); err == nil {
			return nil
		} else if s.sender == nil {
			return fmt.Errorf("enqueue TDDM webhook: %w", err)
		}
	}
	if s.sender == nil {
		return nil
	}
	return s.sender.SendTDDM(ctx, payload)
}

// buildEvent constructs the typed event for the submission. Ordinal counters
// are derived from history, never taken from the request.
func (s *Service) buildEvent(journey *domain.CustomerJourney, user string, subTask domain.SubTask, req transport.SubmitEventRequest) (domain.StageEvent, error) {
	stage := domain.StageRef{
		Task:    journey.CurrentStage.Task,
		SubTask: subTask,
		CRN:     journey.CRN,
		City:    journey.City,
	}
	base := domain.NewEventBase(stage, user, s.now())
	base.NextStepBrief = req.NextStepBrief
	base.NextStepEta = req.NextStepEta
	base.Files = req.Files

	switch subTask {
	case domain.SubTaskRecceFormSubmission:
		return domain.NewRecceFormSubmission(base, domain.RecceFormSubmission{
			DateOfRecce:             req.DateOfRecce,
			Attendee:                req.Attendee,
			RecceTemplateURL:        req.RecceTemplateURL,
			ProjectStartTimeline:    req.ProjectStartTimeline,
			ExpectedGMV:             req.ExpectedGMV,
			HasDrawing:              req.HasDrawing,
			DrawingFile:             req.DrawingFile,
			ArchitecturalPreference: req.ArchitecturalPreference,
			SiteConditionNotes:      req.SiteConditionNotes,
			ExpectedClosureDate:     req.ExpectedClosureDate,
		})
	case domain.SubTaskPostRecceFollowUp:
		return domain.NewPostRecceFollowUp(base, domain.PostRecceFollowUp{
			FollowUpNumber: journey.NextOrdinal(subTask),
			ExpectedAction: req.ExpectedAction,
			MOM:            req.MOM,
		})
	case domain.SubTaskTDDMInitialMeeting:
		return domain.NewTDDMInitialMeeting(base, domain.TDDMInitialMeeting{
			TDDMDate:                 req.TDDMDate,
			MeetingLocation:          req.MeetingLocation,
			Attendance:               req.Attendance,
			AttendeeBNB:              req.AttendeeBNB,
			OSEmail:                  req.OSEmail,
			Duration:                 req.Duration,
			ExpectedClosureDate:      req.ExpectedClosureDate,
			ExpectedGMV:              req.ExpectedGMV,
			DrawingShared:            req.DrawingShared,
			DrawingFile:              req.DrawingFile,
			BOQShared:                req.BOQShared,
			ByeLawsDiscussed:         req.ByeLawsDiscussed,
			SampleFlowPlansDiscussed: req.SampleFlowPlansDiscussed,
			ROIDiscussed:             req.ROIDiscussed,
			CustomerLikes:            req.CustomerLikes,
			MOM:                      req.MOM,
		})
	case domain.SubTaskPostTDDMFollowUp:
		return domain.NewPostTDDMFollowUp(base, domain.PostTDDMFollowUp{
			FollowUpNumber: journey.NextOrdinal(subTask),
			ExpectedAction: req.ExpectedAction,
			MOM:            req.MOM,
		})
	case domain.SubTaskNegotiation:
		return domain.NewNegotiation(base, domain.Negotiation{
			NegotiationNumber:  journey.NextOrdinal(subTask),
			ExpectedGMV:        req.ExpectedGMV,
			KeyConcern:         req.KeyConcern,
			SolutionRecommends: req.SolutionRecommends,
		})
	case domain.SubTaskSiteVisit:
		return domain.NewSiteVisit(base, domain.SiteVisit{
			SiteVisitDate: req.SiteVisitDate,
			Attendees:     req.Attendees,
			ExpectedGMV:   req.ExpectedGMV,
		})
	case domain.SubTaskAgreementDiscussion:
		return domain.NewAgreementDiscussion(base, domain.AgreementDiscussion{
			AgreementShared:     req.AgreementShared,
			ExpectedSigningDate: req.ExpectedSigningDate,
			ConcernsRaised:      req.ConcernsRaised,
			ExpectedGMV:         req.ExpectedGMV,
		})
	case domain.SubTaskClosureFollowUp:
		return domain.NewClosureFollowUp(base, domain.ClosureFollowUp{
			FollowUpNumber: journey.NextOrdinal(subTask),
			ExpectedAction: req.ExpectedAction,
			ExpectedGMV:    req.ExpectedGMV,
		})
	case domain.SubTaskClosureMeetingBACollection:
		return domain.NewClosureMeeting(base, domain.ClosureMeeting{
			ConfirmationMethod: req.ConfirmationMethod,
			FinalGMV:           req.FinalGMV,
		})
	case domain.SubTaskPostClosureFollowUp:
		return domain.NewPostClosureFollowUp(base, domain.PostClosureFollowUp{
			Agenda: req.Agenda,
		})
	default:
		return nil, apperr.BadRequest(fmt.Sprintf("unknown sub task %q", subTask))
	}
}
