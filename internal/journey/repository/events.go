package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"flowtrack/internal/journey/domain"
)

// Events live in one table per pipeline stage, mirroring the per-stage
// submission shapes. Variant-specific columns are nullable; rehydration
// dispatches on sub_task.

func insertEvent(ctx context.Context, tx pgx.Tx, crn string, event domain.StageEvent) error {
	base := event.Base()
	switch e := event.(type) {
	case *domain.RecceFormSubmission:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_recce_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				date_of_recce, attendee, recce_template_url, project_start_timeline, expected_gmv,
				has_drawing, drawing_file, architectural_preference, site_condition_notes, expected_closure_date, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.DateOfRecce, e.Attendee, e.RecceTemplateURL, e.ProjectStartTimeline, e.ExpectedGMV,
			e.HasDrawing, e.DrawingFile, e.ArchitecturalPreference, e.SiteConditionNotes, e.ExpectedClosureDate, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.PostRecceFollowUp:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_recce_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				follow_up_number, expected_action, mom, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.FollowUpNumber, e.ExpectedAction, e.MOM, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.TDDMInitialMeeting:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_tddm_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				tddm_date, meeting_location, attendance, attendee_bnb, os_email, duration,
				expected_closure_date, expected_gmv, drawing_shared, drawing_file, boq_shared,
				bye_laws_discussed, sample_flow_plans_discussed, roi_discussed, customer_likes, mom, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.TDDMDate, e.MeetingLocation, e.Attendance, e.AttendeeBNB, e.OSEmail, e.Duration,
			e.ExpectedClosureDate, e.ExpectedGMV, e.DrawingShared, e.DrawingFile, e.BOQShared,
			e.ByeLawsDiscussed, e.SampleFlowPlansDiscussed, e.ROIDiscussed, e.CustomerLikes, e.MOM, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.PostTDDMFollowUp:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_tddm_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				follow_up_number, expected_action, mom, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.FollowUpNumber, e.ExpectedAction, e.MOM, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.Negotiation:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_advance_meeting_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				negotiation_number, expected_gmv, key_concern, solution_recommends, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.NegotiationNumber, e.ExpectedGMV, e.KeyConcern, e.SolutionRecommends, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.SiteVisit:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_advance_meeting_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				site_visit_date, attendees, expected_gmv, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.SiteVisitDate, e.Attendees, e.ExpectedGMV, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.AgreementDiscussion:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_advance_meeting_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				agreement_shared, expected_signing_date, concerns_raised, expected_gmv, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.AgreementShared, e.ExpectedSigningDate, e.ConcernsRaised, e.ExpectedGMV, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.ClosureFollowUp:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_advance_meeting_events (
				event_id, crn, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
				follow_up_number, expected_action, expected_gmv, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.NextStepBrief, base.NextStepEta, base.Files,
			e.FollowUpNumber, e.ExpectedAction, e.ExpectedGMV, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.ClosureMeeting:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_closure_events (
				event_id, crn, sub_task, event_user, event_time, files,
				confirmation_method, final_gmv, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.Files,
			e.ConfirmationMethod, e.FinalGMV, base.Stage.City)
		return wrapInsert(err, crn, event)

	case *domain.PostClosureFollowUp:
		_, err := tx.Exec(ctx, `
			INSERT INTO ft_closure_events (
				event_id, crn, sub_task, event_user, event_time, files,
				agenda, city
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, base.ID, crn, string(event.SubTask()), base.User, base.Timestamp, base.Files,
			e.Agenda, base.Stage.City)
		return wrapInsert(err, crn, event)

	default:
		return fmt.Errorf("unsupported event type %T", event)
	}
}

func wrapInsert(err error, crn string, event domain.StageEvent) error {
	if err != nil {
		return fmt.Errorf("failed to insert %s event for %s: %w", event.SubTask(), crn, err)
	}
	return nil
}

func (r *Repository) loadEvents(ctx context.Context, crn string) ([]domain.StageEvent, error) {
	var history []domain.StageEvent

	loaders := []func(context.Context, string) ([]domain.StageEvent, error){
		r.loadRecceEvents,
		r.loadTDDMEvents,
		r.loadAdvanceMeetingEvents,
		r.loadClosureEvents,
	}
	for _, load := range loaders {
		events, err := load(ctx, crn)
		if err != nil {
			return nil, err
		}
		history = append(history, events...)
	}
	return history, nil
}

// eventRow carries the columns shared by every event table.
type eventRow struct {
	id            string
	subTask       string
	user          string
	timestamp     time.Time
	nextStepBrief *string
	nextStepEta   *string
	files         *string
	city          *string
}

func (row *eventRow) base(crn string) domain.EventBase {
	subTask := domain.SubTask(row.subTask)
	task, _ := domain.TaskOf(subTask)
	return domain.EventBase{
		ID:            row.id,
		Stage:         domain.StageRef{Task: task, SubTask: subTask, CRN: crn, City: deref(row.city)},
		User:          row.user,
		Timestamp:     row.timestamp,
		NextStepBrief: deref(row.nextStepBrief),
		NextStepEta:   deref(row.nextStepEta),
		Files:         deref(row.files),
	}
}

func (r *Repository) loadRecceEvents(ctx context.Context, crn string) ([]domain.StageEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
			date_of_recce, attendee, recce_template_url, project_start_timeline, expected_gmv,
			has_drawing, drawing_file, architectural_preference, site_condition_notes, expected_closure_date,
			follow_up_number, expected_action, mom, city
		FROM ft_recce_events
		WHERE crn = $1
		ORDER BY event_time ASC
	`, crn)
	if err != nil {
		return nil, fmt.Errorf("failed to load recce events for %s: %w", crn, err)
	}
	defer rows.Close()

	var events []domain.StageEvent
	for rows.Next() {
		var row eventRow
		var (
			dateOfRecce, attendee, templateURL, timeline       *string
			expectedGMV                                        *float64
			hasDrawing                                         *bool
			drawingFile, archPref, siteNotes, closureDate      *string
			followUpNumber                                     *int
			expectedAction, mom                                *string
		)
		if err := rows.Scan(&row.id, &row.subTask, &row.user, &row.timestamp, &row.nextStepBrief, &row.nextStepEta, &row.files,
			&dateOfRecce, &attendee, &templateURL, &timeline, &expectedGMV,
			&hasDrawing, &drawingFile, &archPref, &siteNotes, &closureDate,
			&followUpNumber, &expectedAction, &mom, &row.city); err != nil {
			return nil, err
		}

		switch domain.SubTask(row.subTask) {
		case domain.SubTaskRecceFormSubmission:
			events = append(events, &domain.RecceFormSubmission{
				EventBase:               row.base(crn),
				DateOfRecce:             deref(dateOfRecce),
				Attendee:                deref(attendee),
				RecceTemplateURL:        deref(templateURL),
				ProjectStartTimeline:    deref(timeline),
				ExpectedGMV:             derefF(expectedGMV),
				HasDrawing:              derefB(hasDrawing),
				DrawingFile:             deref(drawingFile),
				ArchitecturalPreference: deref(archPref),
				SiteConditionNotes:      deref(siteNotes),
				ExpectedClosureDate:     deref(closureDate),
			})
		case domain.SubTaskPostRecceFollowUp:
			events = append(events, &domain.PostRecceFollowUp{
				EventBase:      row.base(crn),
				FollowUpNumber: derefI(followUpNumber),
				ExpectedAction: deref(expectedAction),
				MOM:            deref(mom),
			})
		default:
			return nil, fmt.Errorf("unknown recce event sub task %q for %s", row.subTask, crn)
		}
	}
	return events, rows.Err()
}

func (r *Repository) loadTDDMEvents(ctx context.Context, crn string) ([]domain.StageEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
			tddm_date, meeting_location, attendance, attendee_bnb, os_email, duration,
			expected_closure_date, expected_gmv, drawing_shared, drawing_file, boq_shared,
			bye_laws_discussed, sample_flow_plans_discussed, roi_discussed, customer_likes, mom,
			follow_up_number, expected_action, city
		FROM ft_tddm_events
		WHERE crn = $1
		ORDER BY event_time ASC
	`, crn)
	if err != nil {
		return nil, fmt.Errorf("failed to load TDDM events for %s: %w", crn, err)
	}
	defer rows.Close()

	var events []domain.StageEvent
	for rows.Next() {
		var row eventRow
		var (
			tddmDate, location, attendance, attendeeBNB, osEmail, duration *string
			closureDate                                                    *string
			expectedGMV                                                    *float64
			drawingShared, boqShared, byeLaws, samplePlans, roi            *bool
			drawingFile, customerLikes, mom                                *string
			followUpNumber                                                 *int
			expectedAction                                                 *string
		)
		if err := rows.Scan(&row.id, &row.subTask, &row.user, &row.timestamp, &row.nextStepBrief, &row.nextStepEta, &row.files,
			&tddmDate, &location, &attendance, &attendeeBNB, &osEmail, &duration,
			&closureDate, &expectedGMV, &drawingShared, &drawingFile, &boqShared,
			&byeLaws, &samplePlans, &roi, &customerLikes, &mom,
			&followUpNumber, &expectedAction, &row.city); err != nil {
			return nil, err
		}

		switch domain.SubTask(row.subTask) {
		case domain.SubTaskTDDMInitialMeeting:
			events = append(events, &domain.TDDMInitialMeeting{
				EventBase:                row.base(crn),
				TDDMDate:                 deref(tddmDate),
				MeetingLocation:          deref(location),
				Attendance:               deref(attendance),
				AttendeeBNB:              deref(attendeeBNB),
				OSEmail:                  deref(osEmail),
				Duration:                 deref(duration),
				ExpectedClosureDate:      deref(closureDate),
				ExpectedGMV:              derefF(expectedGMV),
				DrawingShared:            derefB(drawingShared),
				DrawingFile:              deref(drawingFile),
				BOQShared:                derefB(boqShared),
				ByeLawsDiscussed:         derefB(byeLaws),
				SampleFlowPlansDiscussed: derefB(samplePlans),
				ROIDiscussed:             derefB(roi),
				CustomerLikes:            deref(customerLikes),
				MOM:                      deref(mom),
			})
		case domain.SubTaskPostTDDMFollowUp:
			events = append(events, &domain.PostTDDMFollowUp{
				EventBase:      row.base(crn),
				FollowUpNumber: derefI(followUpNumber),
				ExpectedAction: deref(expectedAction),
				MOM:            deref(mom),
			})
		default:
			return nil, fmt.Errorf("unknown TDDM event sub task %q for %s", row.subTask, crn)
		}
	}
	return events, rows.Err()
}

func (r *Repository) loadAdvanceMeetingEvents(ctx context.Context, crn string) ([]domain.StageEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, sub_task, event_user, event_time, next_step_brief, next_step_eta, files,
			negotiation_number, expected_gmv, key_concern, solution_recommends,
			site_visit_date, attendees,
			agreement_shared, expected_signing_date, concerns_raised,
			follow_up_number, expected_action, city
		FROM ft_advance_meeting_events
		WHERE crn = $1
		ORDER BY event_time ASC
	`, crn)
	if err != nil {
		return nil, fmt.Errorf("failed to load advance meeting events for %s: %w", crn, err)
	}
	defer rows.Close()

	var events []domain.StageEvent
	for rows.Next() {
		var row eventRow
		var (
			negotiationNumber             *int
			expectedGMV                   *float64
			keyConcern, solution          *string
			siteVisitDate, attendees      *string
			agreementShared               *bool
			signingDate, concernsRaised   *string
			followUpNumber                *int
			expectedAction                *string
		)
		if err := rows.Scan(&row.id, &row.subTask, &row.user, &row.timestamp, &row.nextStepBrief, &row.nextStepEta, &row.files,
			&negotiationNumber, &expectedGMV, &keyConcern, &solution,
			&siteVisitDate, &attendees,
			&agreementShared, &signingDate, &concernsRaised,
			&followUpNumber, &expectedAction, &row.city); err != nil {
			return nil, err
		}

		switch domain.SubTask(row.subTask) {
		case domain.SubTaskNegotiation:
			events = append(events, &domain.Negotiation{
				EventBase:          row.base(crn),
				NegotiationNumber:  derefI(negotiationNumber),
				ExpectedGMV:        derefF(expectedGMV),
				KeyConcern:         deref(keyConcern),
				SolutionRecommends: deref(solution),
			})
		case domain.SubTaskSiteVisit:
			events = append(events, &domain.SiteVisit{
				EventBase:     row.base(crn),
				SiteVisitDate: deref(siteVisitDate),
				Attendees:     deref(attendees),
				ExpectedGMV:   derefF(expectedGMV),
			})
		case domain.SubTaskAgreementDiscussion:
			events = append(events, &domain.AgreementDiscussion{
				EventBase:           row.base(crn),
				AgreementShared:     derefB(agreementShared),
				ExpectedSigningDate: deref(signingDate),
				ConcernsRaised:      deref(concernsRaised),
				ExpectedGMV:         derefF(expectedGMV),
			})
		case domain.SubTaskClosureFollowUp:
			events = append(events, &domain.ClosureFollowUp{
				EventBase:      row.base(crn),
				FollowUpNumber: derefI(followUpNumber),
				ExpectedAction: deref(expectedAction),
				ExpectedGMV:    derefF(expectedGMV),
			})
		default:
			return nil, fmt.Errorf("unknown advance meeting event sub task %q for %s", row.subTask, crn)
		}
	}
	return events, rows.Err()
}

func (r *Repository) loadClosureEvents(ctx context.Context, crn string) ([]domain.StageEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, sub_task, event_user, event_time, files,
			confirmation_method, final_gmv, agenda, city
		FROM ft_closure_events
		WHERE crn = $1
		ORDER BY event_time ASC
	`, crn)
	if err != nil {
		return nil, fmt.Errorf("failed to load closure events for %s: %w", crn, err)
	}
	defer rows.Close()

	var events []domain.StageEvent
	for rows.Next() {
		var row eventRow
		var (
			confirmationMethod []string
			finalGMV           *float64
			agenda             *string
		)
		if err := rows.Scan(&row.id, &row.subTask, &row.user, &row.timestamp, &row.files,
			&confirmationMethod, &finalGMV, &agenda, &row.city); err != nil {
			return nil, err
		}

		switch domain.SubTask(row.subTask) {
		case domain.SubTaskClosureMeetingBACollection:
			events = append(events, &domain.ClosureMeeting{
				EventBase:          row.base(crn),
				ConfirmationMethod: confirmationMethod,
				FinalGMV:           derefF(finalGMV),
			})
		case domain.SubTaskPostClosureFollowUp:
			events = append(events, &domain.PostClosureFollowUp{
				EventBase: row.base(crn),
				Agenda:    deref(agenda),
			})
		default:
			return nil, fmt.Errorf("unknown closure event sub task %q for %s", row.subTask, crn)
		}
	}
	return events, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefF(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefI(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func derefB(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
