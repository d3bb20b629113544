package repository

import (
	"context"

	"flowtrack/internal/journey/domain"
)

// JourneyReader provides read-only access to customer journeys.
type JourneyReader interface {
	Get(ctx context.Context, crn string) (*domain.CustomerJourney, error)
	List(ctx context.Context) ([]*domain.CustomerJourney, error)
	ListCRNs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, crn string) (bool, error)
	Tracked(ctx context.Context, crn string) (bool, error)
	Stage(ctx context.Context, crn string) (domain.StagePointer, bool, error)
}

// JourneyWriter provides write operations for journey state.
type JourneyWriter interface {
	SaveNew(ctx context.Context, journey *domain.CustomerJourney) error
	SaveSubmission(ctx context.Context, journey *domain.CustomerJourney, event domain.StageEvent) error
}

// Journeys combines the reader and writer sides for consumers that need both.
type Journeys interface {
	JourneyReader
	JourneyWriter
}
