// Package planner wires the scheduling core to persistence and the event
// bus. Commands consume App instead of cherry-picking raw dependencies.
package planner

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/history"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/data/db"
)

// Deps are the collaborators shared by the planner services.
type Deps struct {
	Tasks  task.Store
	Blocks day.Store
	Chunks chunk.Store
	Runs   history.Store
	Bus    *eventbus.EventBus
	IDs    chunk.IDSource
	Colors day.ColorSource
	Now    func() time.Time // nil uses time.Now
	Log    zerolog.Logger
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// App is the central entry point for all daybook operations.
type App struct {
	Schedule   *ScheduleService
	Tasks      *TaskService
	Blocks     *BlockService
	Chunks     *ChunkService
	Recurrence *RecurrenceService
	History    history.Store

	Bus    *eventbus.EventBus
	Config *config.Config
	DB     *db.DB

	deps Deps
}

// NewApp constructs an App from explicit dependencies.
func NewApp(deps Deps, cfg *config.Config, database *db.DB) *App {
	app := &App{
		Schedule:   NewScheduleService(deps, cfg),
		Tasks:      NewTaskService(deps),
		Blocks:     NewBlockService(deps),
		Chunks:     NewChunkService(deps),
		Recurrence: NewRecurrenceService(deps),
		History:    deps.Runs,
		Bus:        deps.Bus,
		Config:     cfg,
		DB:         database,
		deps:       deps,
	}

	deps.Bus.SubscribeConfigReloaded(func(p eventbus.ConfigReloadedPayload) {
		app.Schedule.Reconfigure(p.Config)
	})

	return app
}

// WatchConfig reloads the configuration when the file at path changes and
// publishes config.reloaded, which reconfigures the schedule service. The
// caller closes the returned watcher.
func (a *App) WatchConfig(path string) (*config.Watcher, error) {
	return config.NewWatcher(path, a.Config.DataDir, a.deps.Log, func(cfg *config.Config) {
		a.Bus.PublishConfigReloaded(eventbus.ConfigReloadedPayload{Config: cfg})
	})
}

// Today returns the scheduling date the current instant belongs to.
func (a *App) Today() time.Time {
	return day.DateOf(a.deps.now(), a.Schedule.DayStart())
}
