package models

import (
	"testing"
	"time"

	"github.com/benjamonnguyen/pomod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	notifications []pomod.Notification
}

func (n *recordingNotifier) Notify(notification pomod.Notification) {
	n.notifications = append(n.notifications, notification)
}

func shortConfig() Config {
	return Config{
		FocusDuration:      3 * time.Second,
		ShortBreakDuration: 2 * time.Second,
		LongBreakDuration:  4 * time.Second,
		LongBreakInterval:  4,
	}
}

// runSession ticks a started timer until the session switches.
func runSession(t *testing.T, p *Pomodoro) {
	t.Helper()
	before := p.Session()
	p.Start()
	for i := 0; p.Session() == before; i++ {
		require.Less(t, i, 1<<16, "session never ended")
		p.Tick()
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(DefaultConfig())

	assert.Equal(t, pomod.FocusSession, p.Session())
	assert.Equal(t, 25*time.Minute, p.TimeRemaining())
	assert.Equal(t, uint(0), p.Rounds())
	assert.False(t, p.IsRunning())
}

func TestNew_InitialSessionAndTruncation(t *testing.T) {
	cfg := shortConfig()
	cfg.ShortBreakDuration = 2*time.Second + 700*time.Millisecond
	cfg.InitialSession = pomod.ShortBreakSession
	cfg.IsRunning = true

	p := New(cfg)
	assert.Equal(t, pomod.ShortBreakSession, p.Session())
	assert.Equal(t, 2*time.Second, p.TimeRemaining())
	assert.True(t, p.IsRunning())

	// zero value falls back to focus
	p = New(Config{FocusDuration: time.Minute})
	assert.Equal(t, pomod.FocusSession, p.Session())
	assert.Equal(t, time.Minute, p.TimeRemaining())
}

func TestStartStop_Idempotent(t *testing.T) {
	p := New(shortConfig())

	p.Start()
	p.Start()
	assert.True(t, p.IsRunning())

	p.Stop()
	p.Stop()
	assert.False(t, p.IsRunning())
}

func TestTick_NotRunningLeavesStateUnchanged(t *testing.T) {
	cases := []struct {
		name  string
		setup func(p *Pomodoro)
	}{
		{"fresh focus", func(p *Pomodoro) {}},
		{"focus at zero", func(p *Pomodoro) { p.SetTimeRemaining(0) }},
		{"short break", func(p *Pomodoro) { p.NextSession(true) }},
		{"long break", func(p *Pomodoro) {
			for range 3 {
				p.NextSession(true)
				p.NextSession(true)
			}
			p.NextSession(true)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			cfg := shortConfig()
			cfg.ShouldNotify = true
			cfg.Notifier = notifier
			p := New(cfg)
			tc.setup(p)
			require.False(t, p.IsRunning())

			before := p.Status()
			for range 10 {
				p.Tick()
			}
			assert.Equal(t, before, p.Status())
			assert.Empty(t, notifier.notifications)
		})
	}
}

func TestTick_CountsDownOneSecondPerTick(t *testing.T) {
	for _, d := range []time.Duration{time.Second, 7 * time.Second, 90 * time.Second} {
		t.Run(d.String(), func(t *testing.T) {
			p := New(shortConfig())
			p.SetTimeRemaining(d)
			p.Start()

			ticks := 0
			for p.TimeRemaining() > 0 {
				prev := p.TimeRemaining()
				p.Tick()
				ticks++
				assert.Equal(t, prev-time.Second, p.TimeRemaining())
				assert.GreaterOrEqual(t, p.TimeRemaining(), time.Duration(0))
			}
			assert.Equal(t, int(d/time.Second), ticks)
			assert.Equal(t, pomod.FocusSession, p.Session())
			assert.True(t, p.IsRunning())
		})
	}
}

func TestTick_SettlesAtZeroBeforeTransition(t *testing.T) {
	p := New(shortConfig())
	p.SetTimeRemaining(time.Second)
	p.Start()

	p.Tick()
	// zero is observable while still in the old session
	assert.Equal(t, time.Duration(0), p.TimeRemaining())
	assert.Equal(t, pomod.FocusSession, p.Session())
	assert.Equal(t, uint(0), p.Rounds())
	assert.True(t, p.IsRunning())

	p.Tick()
	assert.Equal(t, pomod.ShortBreakSession, p.Session())
	assert.Equal(t, uint(1), p.Rounds())
	assert.False(t, p.IsRunning())
	assert.Equal(t, 2*time.Second, p.TimeRemaining())
}

func TestTick_ZeroSetWhileRunningTransitionsOnNextTick(t *testing.T) {
	p := New(shortConfig())
	p.Start()
	p.Tick()
	p.SetTimeRemaining(0)

	p.Tick()
	assert.Equal(t, pomod.ShortBreakSession, p.Session())
	assert.False(t, p.IsRunning())
}

func TestTick_DefaultFocusScenario(t *testing.T) {
	p := New(DefaultConfig())
	p.Start()

	for range 1500 {
		p.Tick()
	}
	assert.Equal(t, time.Duration(0), p.TimeRemaining())
	assert.Equal(t, pomod.FocusSession, p.Session())

	p.Tick()
	assert.Equal(t, pomod.ShortBreakSession, p.Session())
	assert.Equal(t, uint(1), p.Rounds())
	assert.False(t, p.IsRunning())
	assert.Equal(t, 300*time.Second, p.TimeRemaining())
}

func TestTick_FourthFocusGoesToLongBreak(t *testing.T) {
	p := New(DefaultConfig())

	for round := uint(1); round <= 4; round++ {
		runSession(t, p)
		assert.Equal(t, round, p.Rounds())
		if round < 4 {
			assert.Equal(t, pomod.ShortBreakSession, p.Session())
			runSession(t, p)
			assert.Equal(t, pomod.FocusSession, p.Session())
			assert.Equal(t, round, p.Rounds())
		}
	}
	assert.Equal(t, pomod.LongBreakSession, p.Session())
	assert.Equal(t, uint(4), p.Rounds())
	assert.Equal(t, 25*time.Minute, p.TimeRemaining())

	runSession(t, p)
	assert.Equal(t, pomod.FocusSession, p.Session())
	assert.Equal(t, uint(4), p.Rounds())
}

func TestGoNextSession(t *testing.T) {
	cases := []struct {
		name       string
		session    pomod.Session
		rounds     uint
		wantNext   pomod.Session
		wantRounds uint
	}{
		{"focus to short break", pomod.FocusSession, 0, pomod.ShortBreakSession, 1},
		{"focus to long break", pomod.FocusSession, 3, pomod.LongBreakSession, 4},
		{"focus after long break to short break", pomod.FocusSession, 4, pomod.ShortBreakSession, 5},
		{"eighth focus to long break", pomod.FocusSession, 7, pomod.LongBreakSession, 8},
		{"short break to focus", pomod.ShortBreakSession, 3, pomod.FocusSession, 3},
		{"long break to focus", pomod.LongBreakSession, 4, pomod.FocusSession, 4},
		{"long break to focus off cycle", pomod.LongBreakSession, 1, pomod.FocusSession, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(shortConfig())
			p.session = tc.session
			p.rounds = tc.rounds
			p.remaining = 0
			p.Start()

			p.Tick()
			assert.Equal(t, tc.wantNext, p.Session())
			assert.Equal(t, tc.wantRounds, p.Rounds())
			assert.Equal(t, p.DurationOf(tc.wantNext), p.TimeRemaining())
			assert.False(t, p.IsRunning())
		})
	}
}

func TestGoNextSession_CustomLongBreakInterval(t *testing.T) {
	cfg := shortConfig()
	cfg.LongBreakInterval = 1
	p := New(cfg)

	runSession(t, p)
	assert.Equal(t, pomod.LongBreakSession, p.Session())
	assert.Equal(t, uint(1), p.Rounds())
}

func TestNextSession(t *testing.T) {
	t.Run("no start", func(t *testing.T) {
		cfg := shortConfig()
		cfg.IsRunning = true
		p := New(cfg)

		p.NextSession(true)
		assert.Equal(t, pomod.ShortBreakSession, p.Session())
		assert.False(t, p.IsRunning())
		assert.Equal(t, 2*time.Second, p.TimeRemaining())

		p.NextSession(true)
		assert.Equal(t, pomod.FocusSession, p.Session())
		assert.False(t, p.IsRunning())
	})

	t.Run("start", func(t *testing.T) {
		p := New(shortConfig())

		p.NextSession(false)
		assert.Equal(t, pomod.ShortBreakSession, p.Session())
		assert.Equal(t, uint(1), p.Rounds())
		assert.True(t, p.IsRunning())
	})

	t.Run("does not notify", func(t *testing.T) {
		notifier := &recordingNotifier{}
		cfg := shortConfig()
		cfg.ShouldNotify = true
		cfg.Notifier = notifier
		p := New(cfg)

		p.NextSession(false)
		p.NextSession(true)
		assert.Empty(t, notifier.notifications)
	})
}

func TestResetRounds(t *testing.T) {
	p := New(shortConfig())
	p.NextSession(false)
	require.Equal(t, uint(1), p.Rounds())
	require.True(t, p.IsRunning())

	p.ResetRounds()
	once := p.Status()
	assert.Equal(t, pomod.Status{
		Session:   pomod.FocusSession,
		Remaining: 3 * time.Second,
		Rounds:    0,
		Running:   false,
	}, once)

	p.ResetRounds()
	assert.Equal(t, once, p.Status())
}

func TestNotify(t *testing.T) {
	t.Run("keyed by ended session", func(t *testing.T) {
		notifier := &recordingNotifier{}
		cfg := shortConfig()
		cfg.ShouldNotify = true
		cfg.Notifier = notifier
		p := New(cfg)

		runSession(t, p) // focus -> short
		runSession(t, p) // short -> focus
		require.Len(t, notifier.notifications, 2)
		assert.Equal(t, pomod.NotificationFor(pomod.FocusSession), notifier.notifications[0])
		assert.Equal(t, "Focus Session Ended", notifier.notifications[0].Title)
		assert.Equal(t, pomod.NotificationFor(pomod.ShortBreakSession), notifier.notifications[1])
	})

	t.Run("disabled", func(t *testing.T) {
		notifier := &recordingNotifier{}
		cfg := shortConfig()
		cfg.Notifier = notifier
		p := New(cfg)

		runSession(t, p)
		assert.Empty(t, notifier.notifications)
	})

	t.Run("nil notifier", func(t *testing.T) {
		cfg := shortConfig()
		cfg.ShouldNotify = true
		p := New(cfg)

		assert.NotPanics(t, func() { runSession(t, p) })
	})
}

func TestOnTransition(t *testing.T) {
	p := New(shortConfig())
	var got []pomod.Transition
	p.OnTransition(func(tr pomod.Transition) {
		got = append(got, tr)
	})

	runSession(t, p)
	p.NextSession(true)

	require.Len(t, got, 2)
	assert.Equal(t, pomod.Transition{
		From:    pomod.FocusSession,
		To:      pomod.ShortBreakSession,
		Rounds:  1,
		Planned: 3 * time.Second,
	}, got[0])
	assert.Equal(t, pomod.Transition{
		From:    pomod.ShortBreakSession,
		To:      pomod.FocusSession,
		Rounds:  1,
		Planned: 2 * time.Second,
		Manual:  true,
	}, got[1])
}

func TestSetTimeRemaining(t *testing.T) {
	p := New(shortConfig())
	p.Start()

	p.SetTimeRemaining(10 * time.Minute)
	assert.Equal(t, 10*time.Minute, p.TimeRemaining())
	assert.True(t, p.IsRunning())

	p.SetTimeRemaining(1500 * time.Millisecond)
	assert.Equal(t, time.Second, p.TimeRemaining())
}
