package eventbus

import (
	"context"
	"sync"
)

// Event identifies an event type.
type Event string

const (
	EventChunkCompleted   Event = "chunk.completed"
	EventChunkPlaced      Event = "chunk.placed"
	EventChunkUnscheduled Event = "chunk.unscheduled"
	EventConfigReloaded   Event = "config.reloaded"
	EventPlanFinished     Event = "plan.finished"
	EventScheduleRebuilt  Event = "schedule.rebuilt"
	EventTaskRolledOver   Event = "task.rolled-over"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers published events to subscribers on a single dispatch
// goroutine. Publishing never blocks: when the buffer is full the event is
// dropped and the OnDrop hooks fire.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size. Call Start to begin
// dispatching.
func New(size int) *EventBus {
	return &EventBus{
		ch:   make(chan envelope, size),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

// Drain dispatches every event already buffered and returns. Short-lived
// commands call it before exiting so queued events are not lost.
func (bus *EventBus) Drain() {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	handlers := snapshot(bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

func (bus *EventBus) PublishChunkCompleted(p ChunkCompletedPayload) {
	bus.send(EventChunkCompleted, p)
}

func (bus *EventBus) SubscribeChunkCompleted(fn func(ChunkCompletedPayload)) {
	bus.subscribe(EventChunkCompleted, func(p any) { fn(p.(ChunkCompletedPayload)) })
}

func (bus *EventBus) PublishChunkPlaced(p ChunkPlacedPayload) {
	bus.send(EventChunkPlaced, p)
}

func (bus *EventBus) SubscribeChunkPlaced(fn func(ChunkPlacedPayload)) {
	bus.subscribe(EventChunkPlaced, func(p any) { fn(p.(ChunkPlacedPayload)) })
}

func (bus *EventBus) PublishChunkUnscheduled(p ChunkUnscheduledPayload) {
	bus.send(EventChunkUnscheduled, p)
}

func (bus *EventBus) SubscribeChunkUnscheduled(fn func(ChunkUnscheduledPayload)) {
	bus.subscribe(EventChunkUnscheduled, func(p any) { fn(p.(ChunkUnscheduledPayload)) })
}

func (bus *EventBus) PublishConfigReloaded(p ConfigReloadedPayload) {
	bus.send(EventConfigReloaded, p)
}

func (bus *EventBus) SubscribeConfigReloaded(fn func(ConfigReloadedPayload)) {
	bus.subscribe(EventConfigReloaded, func(p any) { fn(p.(ConfigReloadedPayload)) })
}

func (bus *EventBus) PublishPlanFinished(p PlanFinishedPayload) {
	bus.send(EventPlanFinished, p)
}

func (bus *EventBus) SubscribePlanFinished(fn func(PlanFinishedPayload)) {
	bus.subscribe(EventPlanFinished, func(p any) { fn(p.(PlanFinishedPayload)) })
}

func (bus *EventBus) PublishScheduleRebuilt(p ScheduleRebuiltPayload) {
	bus.send(EventScheduleRebuilt, p)
}

func (bus *EventBus) SubscribeScheduleRebuilt(fn func(ScheduleRebuiltPayload)) {
	bus.subscribe(EventScheduleRebuilt, func(p any) { fn(p.(ScheduleRebuiltPayload)) })
}

func (bus *EventBus) PublishTaskRolledOver(p TaskRolledOverPayload) {
	bus.send(EventTaskRolledOver, p)
}

func (bus *EventBus) SubscribeTaskRolledOver(fn func(TaskRolledOverPayload)) {
	bus.subscribe(EventTaskRolledOver, func(p any) { fn(p.(TaskRolledOverPayload)) })
}
