package pomod

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Request words on the wire, one request per line.
const (
	StartWord       = "start"
	StopWord        = "stop"
	GetWord         = "get"
	SetWord         = "set"
	SessionWord     = "session"
	NextSessionWord = "next-session"
	ResetRoundsWord = "reset-rounds"
	StatsWord       = "stats"

	argSeparator = ","
)

var ErrInvalidRequest = errors.New("invalid request")

type RequestType uint8

const (
	_ RequestType = iota
	StartRequest
	StopRequest
	GetRequest
	SetRequest
	SessionRequest
	NextSessionRequest
	ResetRoundsRequest
	StatsRequest
)

// Request is one decoded client operation. Seconds is only read for
// SetRequest and NoStart only for NextSessionRequest.
type Request struct {
	Type    RequestType
	Seconds uint64
	NoStart bool
}

func Start() Request                   { return Request{Type: StartRequest} }
func Stop() Request                    { return Request{Type: StopRequest} }
func Get() Request                     { return Request{Type: GetRequest} }
func Set(seconds uint64) Request       { return Request{Type: SetRequest, Seconds: seconds} }
func GetSession() Request              { return Request{Type: SessionRequest} }
func NextSession(noStart bool) Request { return Request{Type: NextSessionRequest, NoStart: noStart} }
func ResetRounds() Request             { return Request{Type: ResetRoundsRequest} }
func Stats() Request                   { return Request{Type: StatsRequest} }

// ParseRequest decodes a single request line.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimSpace(line)
	word, arg, hasArg := strings.Cut(line, argSeparator)

	noArg := func(r Request) (Request, error) {
		if hasArg {
			return Request{}, fmt.Errorf("%w: %q takes no argument", ErrInvalidRequest, word)
		}
		return r, nil
	}

	switch word {
	case StartWord:
		return noArg(Start())
	case StopWord:
		return noArg(Stop())
	case GetWord:
		return noArg(Get())
	case SessionWord:
		return noArg(GetSession())
	case ResetRoundsWord:
		return noArg(ResetRounds())
	case StatsWord:
		return noArg(Stats())
	case SetWord:
		if !hasArg {
			return Request{}, fmt.Errorf("%w: %q requires seconds", ErrInvalidRequest, word)
		}
		seconds, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return Request{}, fmt.Errorf("%w: bad seconds %q: %w", ErrInvalidRequest, arg, err)
		}
		return Set(seconds), nil
	case NextSessionWord:
		if !hasArg {
			return Request{}, fmt.Errorf("%w: %q requires no-start flag", ErrInvalidRequest, word)
		}
		noStart, err := strconv.ParseBool(arg)
		if err != nil {
			return Request{}, fmt.Errorf("%w: bad no-start flag %q: %w", ErrInvalidRequest, arg, err)
		}
		return NextSession(noStart), nil
	default:
		return Request{}, fmt.Errorf("%w: unknown request %q", ErrInvalidRequest, line)
	}
}

// String encodes r in its wire form, without the trailing newline.
func (r Request) String() string {
	switch r.Type {
	case StartRequest:
		return StartWord
	case StopRequest:
		return StopWord
	case GetRequest:
		return GetWord
	case SetRequest:
		return SetWord + argSeparator + strconv.FormatUint(r.Seconds, 10)
	case SessionRequest:
		return SessionWord
	case NextSessionRequest:
		return NextSessionWord + argSeparator + strconv.FormatBool(r.NoStart)
	case ResetRoundsRequest:
		return ResetRoundsWord
	case StatsRequest:
		return StatsWord
	default:
		return fmt.Sprintf("RequestType(%d)", uint8(r.Type))
	}
}

// FormatGetResponse encodes the reply to a get request.
func FormatGetResponse(remainingSeconds uint64, rounds uint) string {
	return strconv.FormatUint(remainingSeconds, 10) + argSeparator + strconv.FormatUint(uint64(rounds), 10)
}

func ParseGetResponse(resp string) (remainingSeconds uint64, rounds uint, err error) {
	fields := strings.Split(strings.TrimSpace(resp), argSeparator)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed get response %q", resp)
	}
	if remainingSeconds, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed remaining seconds %q: %w", fields[0], err)
	}
	r, err := strconv.ParseUint(fields[1], 10, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed rounds %q: %w", fields[1], err)
	}
	return remainingSeconds, uint(r), nil
}

// SessionStats counts sessions that ran to completion.
type SessionStats struct {
	Focus, ShortBreak, LongBreak int
}

func FormatStatsResponse(s SessionStats) string {
	return fmt.Sprintf("%d,%d,%d", s.Focus, s.ShortBreak, s.LongBreak)
}

func ParseStatsResponse(resp string) (SessionStats, error) {
	fields := strings.Split(strings.TrimSpace(resp), argSeparator)
	if len(fields) != 3 {
		return SessionStats{}, fmt.Errorf("malformed stats response %q", resp)
	}
	var counts [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return SessionStats{}, fmt.Errorf("malformed stats count %q: %w", f, err)
		}
		counts[i] = n
	}
	return SessionStats{Focus: counts[0], ShortBreak: counts[1], LongBreak: counts[2]}, nil
}
