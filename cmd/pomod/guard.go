package main

import (
	"sync"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/cmd/pomod/models"
)

// guardedPomodoro serializes every access to the daemon's one timer.
type guardedPomodoro struct {
	mu sync.Mutex
	p  *models.Pomodoro
}

func newGuardedPomodoro(p *models.Pomodoro) *guardedPomodoro {
	return &guardedPomodoro{p: p}
}

// Acquire locks the timer. The caller must call unlock exactly once and must
// not do I/O in between.
func (g *guardedPomodoro) Acquire() (*models.Pomodoro, func()) {
	g.mu.Lock()
	return g.p, g.mu.Unlock
}

func (g *guardedPomodoro) Do(fn func(*models.Pomodoro)) {
	p, unlock := g.Acquire()
	defer unlock()
	fn(p)
}

func (g *guardedPomodoro) Status() pomod.Status {
	var s pomod.Status
	g.Do(func(p *models.Pomodoro) {
		s = p.Status()
	})
	return s
}
