package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/client"
)

const (
	RepoURL = "https://github.com/benjamonnguyen/pomod"
	Version = "0.1.0"
)

const (
	runServerCommand  = "run-server"
	showCommand       = "show"
	startCommand      = "start"
	stopCommand       = "stop"
	setCommand        = "set"
	getSessionCommand = "get-session"
	nextCommand       = "next"
	resetCommand      = "reset"
	statsCommand      = "stats"
	watchCommand      = "watch"
)

var errUsage = errors.New("usage")

// Largest set argument that still fits in a time.Duration.
const maxSetMinutes = uint64(math.MaxInt64 / int64(time.Minute))

type cliOptions struct {
	configPath  string
	noStart     bool
	showVersion bool
}

func main() {
	flags := flag.NewFlagSet(pomod.AppName, flag.ContinueOnError)
	var opts cliOptions
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default "+pomod.DefaultConfigPath()+")")
	flags.BoolVarP(&opts.noStart, "no-start", "n", false, "with next: switch sessions without starting the clock")
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flags.Usage = func() { usage(flags, os.Stderr) }

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(pomod.AppName, Version)
		return
	}
	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	// config
	cfg, err := pomod.LoadConfig(opts.configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	// logger
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("bad log level", "level", cfg.LogLevel, "err", err)
	}
	log.SetLevel(level)
	log.SetReportCaller(level == log.DebugLevel)

	if args[0] == runServerCommand {
		runServer(cfg)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := runClient(ctx, cfg, args, opts, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func usage(flags *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `Usage: %s [flags] <command>

Commands:
  %-12s run the daemon
  %-12s print remaining time and rounds
  %-12s start the clock
  %-12s stop the clock
  %-12s set remaining time in minutes
  %-12s print current session code
  %-12s switch to the next session
  %-12s reset rounds and go back to focus
  %-12s print sessions completed today
  %-12s stream live status from the feed

Flags:
`, pomod.AppName,
		runServerCommand, showCommand, startCommand, stopCommand, setCommand+" <min>",
		getSessionCommand, nextCommand, resetCommand, statsCommand, watchCommand)
	flags.SetOutput(w)
	flags.PrintDefaults()
}

func runServer(cfg pomod.Config) {
	topCtx, topCtxC := context.WithCancel(context.Background())

	d, err := newDaemon(cfg, clockwork.NewRealClock(), *log.Default())
	if err != nil {
		log.Fatal("failed to init daemon", "err", err)
	}
	defer d.Close() //nolint
	if err := d.Listen(); err != nil {
		_ = d.Close()
		log.Fatal("failed to listen", "err", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.Run(topCtx)
	}()
	log.Info(pomod.AppName+" running. Press CTRL-C to exit.", "version", Version)

	// graceful shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
		log.Info("terminating " + pomod.AppName)
	case err := <-done:
		topCtxC()
		if err != nil {
			log.Error("daemon stopped", "err", err)
		}
		return
	}
	topCtxC()

	select {
	case err := <-done:
		if err != nil {
			log.Error("daemon stopped", "err", err)
		}
	case <-time.After(shutdownTimeout):
		log.Error("failed to shut down gracefully", "err", context.DeadlineExceeded)
	}
}

func runClient(ctx context.Context, cfg pomod.Config, args []string, opts cliOptions, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	if cmd == watchCommand {
		return watch(ctx, cfg, out)
	}

	var minutes uint64
	switch cmd {
	case setCommand:
		if len(rest) != 1 {
			return fmt.Errorf("%w: %s takes one argument", errUsage, setCommand)
		}
		var err error
		if minutes, err = strconv.ParseUint(rest[0], 10, 64); err != nil {
			return fmt.Errorf("%w: bad minutes %q", errUsage, rest[0])
		}
		if minutes > maxSetMinutes {
			return fmt.Errorf("%w: minutes must be at most %d", errUsage, maxSetMinutes)
		}
	case showCommand, startCommand, stopCommand, getSessionCommand, nextCommand, resetCommand, statsCommand:
		if len(rest) != 0 {
			return fmt.Errorf("%w: %s takes no arguments", errUsage, cmd)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	c, err := client.Dial(cfg.SocketPath)
	if err != nil {
		return err
	}
	defer c.Close() //nolint

	switch cmd {
	case showCommand:
		remaining, rounds, err := c.Get()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s | %d\n", formatClock(remaining), rounds)
	case startCommand:
		return c.Start()
	case stopCommand:
		return c.Stop()
	case setCommand:
		_, err := c.Set(time.Duration(minutes) * time.Minute)
		return err
	case getSessionCommand:
		s, err := c.Session()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, uint8(s))
	case nextCommand:
		return c.NextSession(opts.noStart)
	case resetCommand:
		return c.ResetRounds()
	case statsCommand:
		stats, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d focus | %d short break | %d long break\n", stats.Focus, stats.ShortBreak, stats.LongBreak)
	}
	return nil
}

func watch(ctx context.Context, cfg pomod.Config, out io.Writer) error {
	if cfg.FeedAddr == "" {
		return fmt.Errorf("status feed is disabled, set feed_addr")
	}
	return client.Watch(ctx, cfg.FeedAddr, func(m pomod.StatusMessage) {
		state := "stopped"
		if m.Running {
			state = "running"
		}
		fmt.Fprintf(out, "%s | %d | %s | %s\n", formatClock(time.Duration(m.RemainingSeconds)*time.Second), m.Rounds, m.SessionName, state)
	})
}

// formatClock renders d as MM:SS. Minutes are not wrapped at the hour.
func formatClock(d time.Duration) string {
	secs := uint64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
