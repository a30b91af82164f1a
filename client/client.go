// Package client talks to a running pomod daemon.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benjamonnguyen/pomod"
)

const DefaultTimeout = 5 * time.Second

var ErrDaemonNotRunning = errors.New("pomod daemon is not running")

// Client sends requests over one socket connection. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, DefaultTimeout)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %w", ErrDaemonNotRunning, err)
		}
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: DefaultTimeout,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes req and blocks for its one-line response, returned without the
// trailing newline.
func (c *Client) Send(req pomod.Request) (string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(req.String() + "\n")); err != nil {
		return "", fmt.Errorf("send %s: %w", req, err)
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", req, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Client) Start() error {
	_, err := c.Send(pomod.Start())
	return err
}

func (c *Client) Stop() error {
	_, err := c.Send(pomod.Stop())
	return err
}

func (c *Client) Get() (remaining time.Duration, rounds uint, err error) {
	resp, err := c.Send(pomod.Get())
	if err != nil {
		return 0, 0, err
	}
	secs, rounds, err := pomod.ParseGetResponse(resp)
	if err != nil {
		return 0, 0, err
	}
	return time.Duration(secs) * time.Second, rounds, nil
}

// Set replaces the remaining time and returns the value the daemon applied.
func (c *Client) Set(remaining time.Duration) (time.Duration, error) {
	if remaining < 0 {
		return 0, fmt.Errorf("negative remaining time %s", remaining)
	}
	resp, err := c.Send(pomod.Set(uint64(remaining / time.Second)))
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseUint(resp, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed set response %q: %w", resp, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func (c *Client) Session() (pomod.Session, error) {
	resp, err := c.Send(pomod.GetSession())
	if err != nil {
		return 0, err
	}
	code, err := strconv.ParseUint(resp, 10, 8)
	if err != nil || !pomod.Session(code).Valid() {
		return 0, fmt.Errorf("malformed session response %q", resp)
	}
	return pomod.Session(code), nil
}

func (c *Client) NextSession(noStart bool) error {
	_, err := c.Send(pomod.NextSession(noStart))
	return err
}

func (c *Client) ResetRounds() error {
	_, err := c.Send(pomod.ResetRounds())
	return err
}

func (c *Client) Stats() (pomod.SessionStats, error) {
	resp, err := c.Send(pomod.Stats())
	if err != nil {
		return pomod.SessionStats{}, err
	}
	return pomod.ParseStatsResponse(resp)
}

// Watch streams the daemon's status feed at addr (host:port) into fn until
// ctx is done or the daemon closes the feed.
func Watch(ctx context.Context, addr string, fn func(pomod.StatusMessage)) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial status feed: %w", err)
	}
	defer conn.Close() //nolint

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		var msg pomod.StatusMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read status feed: %w", err)
		}
		fn(msg)
	}
}
