package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/cmd/pomod/models"
)

// tickScheduler applies one Tick per TickInterval. A late firing still
// applies a single tick.
type tickScheduler struct {
	clock     clockwork.Clock
	guard     *guardedPomodoro
	afterTick func(pomod.Status)
	l         log.Logger
}

func newTickScheduler(clock clockwork.Clock, guard *guardedPomodoro, logger log.Logger) *tickScheduler {
	return &tickScheduler{
		clock: clock,
		guard: guard,
		l:     logger,
	}
}

// AfterTick registers a hook called with the post-tick status, outside the
// lock. It must be set before Run.
func (s *tickScheduler) AfterTick(handler func(pomod.Status)) {
	s.afterTick = handler
}

// Run blocks until ctx is done.
func (s *tickScheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(models.TickInterval)
	defer ticker.Stop()
	s.l.Info("tick scheduler started", "interval", models.TickInterval)

	for {
		select {
		case <-ctx.Done():
			s.l.Info("tick scheduler stopped")
			return
		case <-ticker.Chan():
			status := s.tick()
			if s.afterTick != nil {
				s.afterTick(status)
			}
		}
	}
}

func (s *tickScheduler) tick() pomod.Status {
	p, unlock := s.guard.Acquire()
	before := p.Session()
	p.Tick()
	status := p.Status()
	unlock()

	if status.Session != before {
		s.l.Debug("session ended", "ended", before, "next", status.Session, "rounds", status.Rounds)
	}
	return status
}
