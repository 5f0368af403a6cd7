// Package app wires homecmd together: config, logging, storage, executors,
// scheduler and dispatcher, plus the goroutines that keep them running.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"homecmd/internal/actions"
	"homecmd/internal/command"
	"homecmd/internal/config"
	"homecmd/internal/dispatch"
	"homecmd/internal/eventbus"
	"homecmd/internal/runtime/supervisor"
	"homecmd/internal/scheduler"
	"homecmd/internal/storage"
	logx "homecmd/pkg/logx"
)

var (
	ErrNoTask        = errors.New("no pending task matches")
	ErrAmbiguousTask = errors.New("task id prefix matches several tasks")
)

type Option func(*options)

type options struct {
	log   logx.Logger
	gen   actions.Generator
	clock scheduler.Clock
}

// WithLogger skips the configured logging service and logs to log instead.
func WithLogger(log logx.Logger) Option { return func(o *options) { o.log = log } }

// WithGenerator replaces the OpenAI client of the query responder.
func WithGenerator(gen actions.Generator) Option { return func(o *options) { o.gen = gen } }

func WithClock(c scheduler.Clock) Option { return func(o *options) { o.clock = c } }

type App struct {
	cfgm *config.Manager
	cfg  atomic.Pointer[config.Config]

	logs *logx.Service
	log  logx.Logger
	loc  *time.Location

	bus    eventbus.Bus
	store  storage.Store
	sched  *scheduler.Scheduler
	disp   *dispatch.Dispatcher
	timer  *actions.Timer
	player *actions.Player
	lights *actions.Lights

	sup *supervisor.Supervisor
}

// New loads the config at cfgPath (defaults when it does not exist) and
// builds every component. Nothing runs until Start.
func New(ctx context.Context, cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewManager(cfgPath)
	bootLog := o.log
	if bootLog.IsZero() {
		bootLog = logx.NewConsole("info")
	}
	cfgm.SetLogger(bootLog.With(logx.String("comp", "config")))
	cfgm.SetValidator(validate)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}

	a := &App{cfgm: cfgm, log: o.log}
	a.cfg.Store(cfg)
	if a.log.IsZero() {
		a.logs, a.log = logx.NewService(cfg.LogConfig())
	}
	cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.build(cfg, o); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.log.Info("homecmd ready",
		logx.String("config", cfgPath),
		logx.String("storage", cfg.Storage.Driver),
		logx.String("timezone", a.loc.String()),
		logx.Bool("query", cfg.Query.Enabled),
		logx.Int("routines", len(cfg.Scheduler.Routines)),
	)
	return a, nil
}

func (a *App) build(cfg *config.Config, o options) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.loc = loc
	a.bus = eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	if a.store, err = storage.Open(sc, a.log.With(logx.String("comp", "storage"))); err != nil {
		return err
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(a.log),
		scheduler.WithBus(a.bus),
		scheduler.WithLocation(loc),
		scheduler.WithHistorySize(cfg.Scheduler.HistorySize),
	}
	now := time.Now
	if o.clock != nil {
		schedOpts = append(schedOpts, scheduler.WithClock(o.clock))
		now = o.clock.Now
	}
	a.sched = scheduler.New(schedOpts...)

	a.timer = actions.NewTimer(a.bus, a.log, actions.WithTimerNow(now))
	a.player = actions.NewPlayer(cfg.Music.DefaultVolume, cfg.Music.VolumeStep, a.log)
	a.lights = actions.NewLights(a.log)
	exec := dispatch.Executors{
		Reminders: actions.NewReminders(a.store, a.log),
		Timer:     a.timer,
		Lights:    a.lights,
		Music:     a.player,
		Volume:    a.player,
		Clock:     actions.NewClock(loc, now),
		Jokes:     actions.NewJokes(nil),
	}
	if cfg.Query.Enabled {
		q, err := a.newQuery(cfg, o.gen)
		if err != nil {
			return err
		}
		exec.Query = q
	}
	a.disp = dispatch.New(exec, a.sched,
		dispatch.WithLogger(a.log),
		dispatch.WithLocation(loc),
		dispatch.WithNow(now),
	)
	return a.applyRoutines(cfg)
}

func (a *App) newQuery(cfg *config.Config, gen actions.Generator) (*actions.Query, error) {
	qopts, err := mapQueryOptions(cfg)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		token := os.Getenv(strings.TrimSpace(cfg.Query.APIKeyEnv))
		llm, err := actions.NewOpenAI(cfg.Query.BaseURL, cfg.Query.Model, token)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		gen = llm
	}
	return actions.NewQuery(gen, qopts, a.log), nil
}

func (a *App) applyRoutines(cfg *config.Config) error {
	routines, err := mapRoutines(cfg)
	if err != nil {
		return err
	}
	return a.sched.SetRoutines(routines)
}

// Start runs the scheduler loop, the config watcher and the reload loop.
func (a *App) Start(ctx context.Context) {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	a.sup.Go("scheduler", func(c context.Context) error {
		return a.sched.Run(c, a.disp.Fire)
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, time.Second, 30*time.Second)

	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(next)
			}
		}
	})

	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("events.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})
}

func (a *App) applyConfig(next *config.Config) {
	changed, attrs := config.SummarizeChange(a.cfg.Load(), next)
	if len(changed) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	a.log.Info("config changed", append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)...)
	if restart := config.RestartRequired(changed); len(restart) > 0 {
		a.log.Warn("restart required for changes to take effect", logx.String("sections", strings.Join(restart, ",")))
	}
	if slices.Contains(changed, "logging") && a.logs != nil {
		a.logs.Apply(next.LogConfig())
	}
	if slices.Contains(changed, "scheduler") {
		if err := a.applyRoutines(next); err != nil {
			a.log.Warn("routines not fully applied", logx.Err(err))
		}
	}
	a.cfg.Store(next)
}

// Normalize returns the canonical command line runs as. In conversation
// mode everything becomes a general query.
func (a *App) Normalize(line string) command.Command {
	if a.cfg.Load().Conversation() && strings.TrimSpace(line) != "" {
		return command.Normalize("general query: " + line)
	}
	return command.Normalize(line)
}

// Handle runs one utterance and returns the reply.
func (a *App) Handle(ctx context.Context, line string) (string, error) {
	cmd := a.Normalize(line)
	res, err := a.disp.Dispatch(ctx, cmd)
	return res.Reply, err
}

// Once runs line with the app started. The reply goes to out right away.
// When the command left deferred work behind (a scheduled task or a
// timer), Once keeps running until that work completes and returns its
// completion event; a failed task is also returned as an error. The zero
// Event means nothing was deferred.
func (a *App) Once(ctx context.Context, line string, out func(string)) (eventbus.Event, error) {
	events, unsub := a.bus.Subscribe(16, scheduler.EventFired, scheduler.EventFailed, actions.EventTimerDone)
	defer unsub()
	a.Start(ctx)

	res, err := a.disp.Dispatch(ctx, a.Normalize(line))
	if err != nil {
		return eventbus.Event{}, err
	}
	if res.Reply != "" {
		out(res.Reply)
	}
	timer := res.Action.Category == dispatch.CategoryTimer && res.Action.Op == dispatch.OpSet
	if res.Task == nil && !timer {
		return eventbus.Event{}, nil
	}

	a.log.Debug("waiting for deferred work", logx.String("command", string(res.Action.Command)))
	for {
		select {
		case <-ctx.Done():
			return eventbus.Event{}, ctx.Err()
		case ev := <-events:
			if timer {
				if ev.Type == actions.EventTimerDone {
					return ev, nil
				}
				continue
			}
			info, ok := ev.Data.(scheduler.TaskInfo)
			if !ok || info.ID != res.Task.ID {
				continue
			}
			if ev.Type == scheduler.EventFailed {
				return ev, fmt.Errorf("scheduled %q failed: %s", string(info.Command), info.Error)
			}
			return ev, nil
		}
	}
}

func (a *App) Tasks() scheduler.Snapshot { return a.sched.Snapshot() }

// CancelTask cancels the single pending task whose id starts with prefix.
func (a *App) CancelTask(prefix string) (scheduler.TaskInfo, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return scheduler.TaskInfo{}, fmt.Errorf("%w: empty id", ErrNoTask)
	}
	var matches []scheduler.TaskInfo
	for _, t := range a.sched.Pending() {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return scheduler.TaskInfo{}, fmt.Errorf("%w %q", ErrNoTask, prefix)
	case 1:
	default:
		return scheduler.TaskInfo{}, fmt.Errorf("%w: %q", ErrAmbiguousTask, prefix)
	}
	id := matches[0].ID
	if !a.sched.Cancel(id) {
		return scheduler.TaskInfo{}, fmt.Errorf("%w %q", ErrNoTask, prefix)
	}
	info, _ := a.sched.Get(id)
	return info, nil
}

func (a *App) Config() *config.Config { return a.cfg.Load() }
func (a *App) Bus() eventbus.Bus { return a.bus }
func (a *App) Location() *time.Location { return a.loc }
func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Player() *actions.Player { return a.player }
func (a *App) Lights() *actions.Lights { return a.lights }
func (a *App) Timer() *actions.Timer { return a.timer }

// Close stops background goroutines and releases storage and log files.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.timer != nil {
		_, _ = a.timer.CancelTimer(ctx)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
