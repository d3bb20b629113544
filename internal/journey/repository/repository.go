package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowtrack/internal/journey/domain"
)

var ErrNotFound = errors.New("journey not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Journeys = (*Repository)(nil)

// Exists reports whether a customer profile exists for the CRN.
func (r *Repository) Exists(ctx context.Context, crn string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ft_customers WHERE crn = $1)
	`, crn).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}
	return exists, nil
}

// Tracked reports whether the CRN has an explicit stage pointer. Legacy
// customer records predate stage tracking and have none.
func (r *Repository) Tracked(ctx context.Context, crn string) (bool, error) {
	var tracked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ft_journeys WHERE crn = $1)
	`, crn).Scan(&tracked)
	if err != nil {
		return false, fmt.Errorf("failed to check stage pointer: %w", err)
	}
	return tracked, nil
}

// Stage returns the current stage pointer and closed flag without loading
// history. An untracked legacy record reports the migrated seed stage; a CRN
// with no profile at all is ErrNotFound. Cheap enough for live lookups.
func (r *Repository) Stage(ctx context.Context, crn string) (domain.StagePointer, bool, error) {
	var task, subTask, city string
	var isClosed bool
	err := r.pool.QueryRow(ctx, `
		SELECT task, sub_task, city, is_closed
		FROM ft_journeys
		WHERE crn = $1
	`, crn).Scan(&task, &subTask, &city, &isClosed)
	if err == nil {
		return domain.StagePointer{
			Task:    domain.Task(task),
			SubTask: domain.SubTask(subTask),
			City:    city,
		}, isClosed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.StagePointer{}, false, fmt.Errorf("failed to load stage pointer: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT city FROM ft_customers WHERE crn = $1
	`, crn).Scan(&city)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StagePointer{}, false, ErrNotFound
	}
	if err != nil {
		return domain.StagePointer{}, false, fmt.Errorf("failed to load customer %s: %w", crn, err)
	}

	seedTask, seedSubTask := domain.MigratedStage()
	return domain.StagePointer{Task: seedTask, SubTask: seedSubTask, City: city}, false, nil
}

// ListCRNs returns every known CRN, newest profile first.
func (r *Repository) ListCRNs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT crn FROM ft_customers ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list CRNs: %w", err)
	}
	defer rows.Close()

	crns := make([]string, 0)
	for rows.Next() {
		var crn string
		if err := rows.Scan(&crn); err != nil {
			return nil, err
		}
		crns = append(crns, crn)
	}
	return crns, rows.Err()
}

// Get loads a full journey: profile, stage pointer and event history. A
// missing stage pointer is tolerated; the journey is returned with a zero
// pointer and the caller derives the stage from history.
func (r *Repository) Get(ctx context.Context, crn string) (*domain.CustomerJourney, error) {
	j := &domain.CustomerJourney{CRN: crn}
	err := r.pool.QueryRow(ctx, `
		SELECT city, customer_name, customer_email, customer_phone, gmv, created_at
		FROM ft_customers
		WHERE crn = $1
	`, crn).Scan(&j.City, &j.CustomerName, &j.CustomerEmail, &j.CustomerPhone, &j.GMV, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %s: %w", crn, err)
	}

	var task, subTask, city string
	err = r.pool.QueryRow(ctx, `
		SELECT task, sub_task, city, is_closed
		FROM ft_journeys
		WHERE crn = $1
	`, crn).Scan(&task, &subTask, &city, &j.IsClosed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Pointer reconstructed from history below.
	case err != nil:
		return nil, fmt.Errorf("failed to load stage pointer for %s: %w", crn, err)
	default:
		j.CurrentStage = domain.StagePointer{
			Task:    domain.Task(task),
			SubTask: domain.SubTask(subTask),
			City:    city,
		}
	}

	history, err := r.loadEvents(ctx, crn)
	if err != nil {
		return nil, err
	}
	j.History = history
	j.SortHistory()

	if j.CurrentStage.Task == "" {
		j.CurrentStage, j.IsClosed = domain.DeriveStage(j.History, j.City)
	}
	j.RecomputeGMV()
	return j, nil
}

// List loads every journey. Event loading is per journey; callers wanting
// parallelism fan out over ListCRNs and Get instead.
func (r *Repository) List(ctx context.Context) ([]*domain.CustomerJourney, error) {
	crns, err := r.ListCRNs(ctx)
	if err != nil {
		return nil, err
	}
	journeys := make([]*domain.CustomerJourney, 0, len(crns))
	for _, crn := range crns {
		j, err := r.Get(ctx, crn)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, nil
}

// SaveNew persists a freshly initiated journey: the customer profile and the
// stage pointer land in one transaction.
func (r *Repository) SaveNew(ctx context.Context, journey *domain.CustomerJourney) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertCustomer(ctx, tx, journey); err != nil {
		return err
	}
	if err := upsertPointer(ctx, tx, journey); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SaveSubmission persists one stage submission atomically: the customer
// profile is refreshed, the pointer is moved, then the event is appended.
// Rolling back leaves the journey exactly where it was.
func (r *Repository) SaveSubmission(ctx context.Context, journey *domain.CustomerJourney, event domain.StageEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertCustomer(ctx, tx, journey); err != nil {
		return err
	}
	if err := upsertPointer(ctx, tx, journey); err != nil {
		return err
	}
	if err := insertEvent(ctx, tx, journey.CRN, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func upsertCustomer(ctx context.Context, tx pgx.Tx, journey *domain.CustomerJourney) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ft_customers (crn, city, customer_name, customer_email, customer_phone, gmv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (crn) DO UPDATE SET
			city = EXCLUDED.city,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			gmv = EXCLUDED.gmv
	`, journey.CRN, journey.City, journey.CustomerName, journey.CustomerEmail,
		journey.CustomerPhone, journey.GMV, journey.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert customer %s: %w", journey.CRN, err)
	}
	return nil
}

func upsertPointer(ctx context.Context, tx pgx.Tx, journey *domain.CustomerJourney) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ft_journeys (crn, task, sub_task, city, is_closed, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (crn) DO UPDATE SET
			task = EXCLUDED.task,
			sub_task = EXCLUDED.sub_task,
			city = EXCLUDED.city,
			is_closed = EXCLUDED.is_closed,
			updated_at = now()
	`, journey.CRN, string(journey.CurrentStage.Task), string(journey.CurrentStage.SubTask),
		journey.CurrentStage.City, journey.IsClosed)
	if err != nil {
		return fmt.Errorf("failed to upsert stage pointer for %s: %w", journey.CRN, err)
	}
	return nil
}
