// Package models helps control struct access and mutation
package models

import (
	"time"

	"github.com/benjamonnguyen/pomod"
)

const (
	TickInterval             = time.Second
	DefaultLongBreakInterval = 4
)

// Notifier receives session-ended notifications. Notify is called while the
// timer is locked and must not block.
type Notifier interface {
	Notify(pomod.Notification)
}

type Config struct {
	FocusDuration      time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	// LongBreakInterval is the number of focus rounds per long break.
	LongBreakInterval uint
	InitialSession    pomod.Session
	IsRunning         bool
	ShouldNotify      bool
	Notifier          Notifier
}

func DefaultConfig() Config {
	return Config{
		FocusDuration:      25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  25 * time.Minute,
		LongBreakInterval:  DefaultLongBreakInterval,
		InitialSession:     pomod.FocusSession,
	}
}

// Pomodoro is the timer state machine. It is not safe for concurrent use;
// every call must be serialized by the owner.
type Pomodoro struct {
	session   pomod.Session
	remaining time.Duration
	running   bool
	rounds    uint

	focus, shortBreak, longBreak time.Duration
	longBreakInterval            uint

	shouldNotify bool
	notifier     Notifier
	onTransition func(pomod.Transition)
}

func New(cfg Config) *Pomodoro {
	if cfg.LongBreakInterval == 0 {
		cfg.LongBreakInterval = DefaultLongBreakInterval
	}
	if !cfg.InitialSession.Valid() {
		cfg.InitialSession = pomod.FocusSession
	}

	p := &Pomodoro{
		session:           cfg.InitialSession,
		running:           cfg.IsRunning,
		focus:             wholeSeconds(cfg.FocusDuration),
		shortBreak:        wholeSeconds(cfg.ShortBreakDuration),
		longBreak:         wholeSeconds(cfg.LongBreakDuration),
		longBreakInterval: cfg.LongBreakInterval,
		shouldNotify:      cfg.ShouldNotify,
		notifier:          cfg.Notifier,
	}
	p.remaining = p.durationOf(p.session)
	return p
}

// OnTransition registers a hook called after every session switch, manual or
// not. Like Notifier, it runs under the owner's lock and must not block.
func (p *Pomodoro) OnTransition(handler func(pomod.Transition)) {
	p.onTransition = handler
}

func (p *Pomodoro) Start() {
	p.running = true
}

func (p *Pomodoro) Stop() {
	p.running = false
}

func (p *Pomodoro) SetTimeRemaining(d time.Duration) {
	p.remaining = wholeSeconds(d)
}

// Tick advances a running timer by one TickInterval. A tick that finds no
// time remaining switches to the next session instead, so zero stays
// observable for one full tick before the switch.
func (p *Pomodoro) Tick() {
	if !p.running {
		return
	}

	if p.remaining == 0 {
		ended := p.session
		p.goNextSession(false)
		if p.shouldNotify && p.notifier != nil {
			p.notifier.Notify(pomod.NotificationFor(ended))
		}
		return
	}

	p.remaining -= TickInterval
}

// NextSession switches sessions immediately and restarts the clock unless
// noStart is set. No notification is sent.
func (p *Pomodoro) NextSession(noStart bool) {
	p.goNextSession(true)
	if !noStart {
		p.Start()
	}
}

func (p *Pomodoro) ResetRounds() {
	p.Stop()
	p.session = pomod.FocusSession
	p.remaining = p.focus
	p.rounds = 0
}

func (p *Pomodoro) TimeRemaining() time.Duration {
	return p.remaining
}

func (p *Pomodoro) Rounds() uint {
	return p.rounds
}

func (p *Pomodoro) Session() pomod.Session {
	return p.session
}

func (p *Pomodoro) IsRunning() bool {
	return p.running
}

func (p *Pomodoro) Status() pomod.Status {
	return pomod.Status{
		Session:   p.session,
		Remaining: p.remaining,
		Rounds:    p.rounds,
		Running:   p.running,
	}
}

// DurationOf returns the configured length of s.
func (p *Pomodoro) DurationOf(s pomod.Session) time.Duration {
	return p.durationOf(s)
}

func (p *Pomodoro) goNextSession(manual bool) {
	p.Stop()

	t := pomod.Transition{
		From:    p.session,
		Planned: p.durationOf(p.session),
		Manual:  manual,
	}

	var next pomod.Session
	switch p.session {
	case pomod.FocusSession:
		p.rounds++
		if p.rounds%p.longBreakInterval == 0 {
			next = pomod.LongBreakSession
		} else {
			next = pomod.ShortBreakSession
		}
	default:
		// After any break, next is focus
		next = pomod.FocusSession
	}
	p.session = next
	p.remaining = p.durationOf(next)

	t.To = next
	t.Rounds = p.rounds
	if p.onTransition != nil {
		p.onTransition(t)
	}
}

func (p *Pomodoro) durationOf(s pomod.Session) time.Duration {
	switch s {
	case pomod.FocusSession:
		return p.focus
	case pomod.ShortBreakSession:
		return p.shortBreak
	case pomod.LongBreakSession:
		return p.longBreak
	default:
		return 0
	}
}

func wholeSeconds(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}
