package planner

import (
	"context"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/recur"
	"github.com/colonyops/daybook/internal/core/task"
)

// RecurrenceService rolls over recurring tasks that have come due.
type RecurrenceService struct {
	resolver *recur.Resolver
	bus      *eventbus.EventBus
	deps     Deps
	log      zerolog.Logger
}

// NewRecurrenceService creates a new RecurrenceService.
func NewRecurrenceService(deps Deps) *RecurrenceService {
	return &RecurrenceService{
		resolver: recur.NewResolver(deps.Tasks, deps.Log),
		bus:      deps.Bus,
		deps:     deps,
		log:      logging.Component(deps.Log, "recurrence-service"),
	}
}

// CatchUp rolls over every eligible task and publishes task.rolled-over
// for each. Tasks rolled over before a failure stay rolled over and are
// still returned and published.
func (s *RecurrenceService) CatchUp(ctx context.Context) ([]task.Task, error) {
	rolled, err := s.resolver.CatchUp(ctx, s.deps.now())
	for _, t := range rolled {
		s.bus.PublishTaskRolledOver(eventbus.TaskRolledOverPayload{Task: t})
	}
	if len(rolled) > 0 {
		s.log.Info().Int("count", len(rolled)).Msg("recurring tasks rolled over")
	}
	return rolled, err
}
