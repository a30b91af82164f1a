package pomod

import (
	"fmt"
	"time"
)

// Session is one phase of the timer. Values double as wire codes.
type Session uint8

const (
	_ Session = iota
	FocusSession
	ShortBreakSession
	LongBreakSession
)

func (s Session) String() string {
	switch s {
	case FocusSession:
		return "Focus"
	case ShortBreakSession:
		return "Short Break"
	case LongBreakSession:
		return "Long Break"
	default:
		return fmt.Sprintf("Session(%d)", uint8(s))
	}
}

func (s Session) Valid() bool {
	return s >= FocusSession && s <= LongBreakSession
}

// IsBreak reports whether s is a short or long break.
func (s Session) IsBreak() bool {
	return s == ShortBreakSession || s == LongBreakSession
}

// Status is a consistent snapshot of the timer.
type Status struct {
	Session   Session
	Remaining time.Duration
	Rounds    uint
	Running   bool
}

// Transition describes one switch between sessions.
type Transition struct {
	From, To Session
	Rounds   uint
	// Planned is the configured duration of the session that ended.
	Planned time.Duration
	// Manual is set when the switch was forced instead of reached by the clock.
	Manual bool
}

type Notification struct {
	Ended Session
	Title string
	Body  string
}

// NotificationFor returns the notification announcing that ended is over.
func NotificationFor(ended Session) Notification {
	n := Notification{Ended: ended}
	switch ended {
	case FocusSession:
		n.Title, n.Body = "Focus Session Ended", "Take a break"
	case ShortBreakSession:
		n.Title, n.Body = "Short Break Ended", "Get back to work"
	case LongBreakSession:
		n.Title, n.Body = "Long Break Ended", "Get back to work"
	}
	return n
}

// StatusMessage is the JSON form of Status sent on the status feed.
type StatusMessage struct {
	Session          Session `json:"session"`
	SessionName      string  `json:"session_name"`
	RemainingSeconds uint64  `json:"remaining_seconds"`
	Rounds           uint    `json:"rounds"`
	Running          bool    `json:"running"`
}

func NewStatusMessage(s Status) StatusMessage {
	return StatusMessage{
		Session:          s.Session,
		SessionName:      s.Session.String(),
		RemainingSeconds: uint64(s.Remaining / time.Second),
		Rounds:           s.Rounds,
		Running:          s.Running,
	}
}

func (m StatusMessage) Status() Status {
	return Status{
		Session:   m.Session,
		Remaining: time.Duration(m.RemainingSeconds) * time.Second,
		Rounds:    m.Rounds,
		Running:   m.Running,
	}
}
