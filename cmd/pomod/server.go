package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/cmd/pomod/models"
)

// Largest settable remaining time that still fits in a time.Duration.
const maxSetSeconds = uint64(math.MaxInt64 / int64(time.Second))

type statsSource interface {
	StatsSince(ctx context.Context, since time.Time) (pomod.SessionStats, error)
}

type server struct {
	guard    *guardedPomodoro
	clock    clockwork.Clock
	stats    statsSource
	onChange func()
	l        log.Logger
	wg       sync.WaitGroup
}

func newServer(guard *guardedPomodoro, clock clockwork.Clock, logger log.Logger) *server {
	return &server{
		guard: guard,
		clock: clock,
		l:     logger,
	}
}

// SetStats enables the stats request. Without a source it answers 0,0,0.
func (s *server) SetStats(src statsSource) {
	s.stats = src
}

// OnChange registers a hook run, outside the lock, after every request that
// may have changed the timer.
func (s *server) OnChange(handler func()) {
	s.onChange = handler
}

// Serve accepts connections until ctx is done or ln fails. Connections are
// closed when ctx is done; Wait blocks until their handlers return.
func (s *server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Go(func() {
			s.handleConn(ctx, conn)
		})
	}
}

func (s *server) Wait() {
	s.wg.Wait()
}

func (s *server) handleConn(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close() //nolint

	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for scanner.Scan() {
		req, err := pomod.ParseRequest(scanner.Text())
		if err != nil {
			s.l.Warn("closing connection on bad request", "err", err)
			return
		}

		resp, err := s.apply(ctx, req)
		if err != nil {
			s.l.Error("failed request", "request", req.String(), "err", err)
		}
		if _, err := w.WriteString(resp + "\n"); err != nil {
			s.l.Debug("failed to write response", "err", err)
			return
		}
		if err := w.Flush(); err != nil {
			s.l.Debug("failed to flush response", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.l.Debug("connection read failed", "err", err)
	}
}

// apply runs req and returns its response line. An error still comes with
// a usable response.
func (s *server) apply(ctx context.Context, req pomod.Request) (string, error) {
	if req.Type == pomod.StatsRequest {
		return s.statsToday(ctx)
	}

	var resp string
	s.guard.Do(func(p *models.Pomodoro) {
		switch req.Type {
		case pomod.StartRequest:
			p.Start()
		case pomod.StopRequest:
			p.Stop()
		case pomod.GetRequest:
			resp = pomod.FormatGetResponse(seconds(p.TimeRemaining()), p.Rounds())
		case pomod.SetRequest:
			p.SetTimeRemaining(time.Duration(min(req.Seconds, maxSetSeconds)) * time.Second)
			resp = strconv.FormatUint(seconds(p.TimeRemaining()), 10)
		case pomod.SessionRequest:
			resp = strconv.Itoa(int(p.Session()))
		case pomod.NextSessionRequest:
			p.NextSession(req.NoStart)
		case pomod.ResetRoundsRequest:
			p.ResetRounds()
		}
	})

	switch req.Type {
	case pomod.GetRequest, pomod.SessionRequest:
	default:
		if s.onChange != nil {
			s.onChange()
		}
	}
	return resp, nil
}

func (s *server) statsToday(ctx context.Context) (string, error) {
	if s.stats == nil {
		return pomod.FormatStatsResponse(pomod.SessionStats{}), nil
	}
	stats, err := s.stats.StatsSince(ctx, startOfDay(s.clock.Now()))
	if err != nil {
		return pomod.FormatStatsResponse(pomod.SessionStats{}), fmt.Errorf("query stats: %w", err)
	}
	return pomod.FormatStatsResponse(stats), nil
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}
