package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/cmd/pomod/models"
)

const (
	eventQueueSize  = 32
	deliveryTimeout = 10 * time.Second
)

type notificationSink interface {
	Notify(context.Context, pomod.Notification) error
}

type transitionRecorder interface {
	Record(ctx context.Context, t pomod.Transition, at time.Time) error
}

type event struct {
	notification *pomod.Notification
	transition   *pomod.Transition
	at           time.Time
}

// eventDispatcher moves timer side effects off the locked path. Notify and
// RecordTransition only enqueue; Run delivers.
type eventDispatcher struct {
	clock    clockwork.Clock
	events   chan event
	sinks    map[string]notificationSink
	recorder transitionRecorder
	dropped  atomic.Uint64
	l        log.Logger
}

var _ models.Notifier = (*eventDispatcher)(nil)

func newEventDispatcher(clock clockwork.Clock, logger log.Logger) *eventDispatcher {
	return &eventDispatcher{
		clock:  clock,
		events: make(chan event, eventQueueSize),
		sinks:  make(map[string]notificationSink),
		l:      logger,
	}
}

// AddSink and SetRecorder must be called before Run.
func (d *eventDispatcher) AddSink(name string, sink notificationSink) {
	d.sinks[name] = sink
}

func (d *eventDispatcher) SetRecorder(r transitionRecorder) {
	d.recorder = r
}

func (d *eventDispatcher) Notify(n pomod.Notification) {
	if len(d.sinks) == 0 {
		return
	}
	d.enqueue(event{notification: &n, at: d.clock.Now()})
}

func (d *eventDispatcher) RecordTransition(t pomod.Transition) {
	if d.recorder == nil {
		return
	}
	d.enqueue(event{transition: &t, at: d.clock.Now()})
}

func (d *eventDispatcher) enqueue(e event) {
	select {
	case d.events <- e:
	default:
		d.dropped.Add(1)
	}
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (d *eventDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case e := <-d.events:
			d.deliver(ctx, e)
		}
	}
}

func (d *eventDispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	for {
		select {
		case e := <-d.events:
			d.deliver(ctx, e)
		default:
			return
		}
	}
}

func (d *eventDispatcher) deliver(ctx context.Context, e event) {
	if n := d.dropped.Swap(0); n > 0 {
		d.l.Warn("event queue full, dropped events", "count", n)
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	if e.notification != nil {
		for name, sink := range d.sinks {
			if err := sink.Notify(ctx, *e.notification); err != nil {
				d.l.Error("failed to deliver notification", "sink", name, "title", e.notification.Title, "err", err)
			}
		}
	}
	if e.transition != nil && d.recorder != nil {
		if err := d.recorder.Record(ctx, *e.transition, e.at); err != nil {
			d.l.Error("failed to record session history", "from", e.transition.From, "to", e.transition.To, "err", err)
		}
	}
}
