// Package repl is the interactive line interface: one utterance per line,
// plus a few ":" meta commands for inspecting and cancelling scheduled tasks.
// Scheduler and timer notices are printed as they arrive.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"homecmd/internal/actions"
	"homecmd/internal/eventbus"
	"homecmd/internal/scheduler"
	logx "homecmd/pkg/logx"
)

// App is what the REPL drives.
type App interface {
	Handle(ctx context.Context, line string) (string, error)
	Tasks() scheduler.Snapshot
	CancelTask(idPrefix string) (scheduler.TaskInfo, error)
}

type Config struct {
	Prompt      string
	HistoryFile string
	NoColor     bool

	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
}

type REPL struct {
	cfg Config
	app App
	bus eventbus.Bus
	log logx.Logger
	loc *time.Location

	notice *color.Color
	failed *color.Color
	dim    *color.Color
}

const helpText = `Type a request, for example "set a timer for 5 minutes" or
"schedule turn off the lights in 10 minutes".
Meta commands:
  :tasks            list pending scheduled tasks
  :history          list recently finished tasks
  :cancel <id>      cancel a pending task by id prefix
  :help             show this help
  exit, quit        leave`

func New(cfg Config, app App, bus eventbus.Bus, log logx.Logger, loc *time.Location) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = "homecmd> "
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if loc == nil {
		loc = time.Local
	}
	r := &REPL{
		cfg:    cfg,
		app:    app,
		bus:    bus,
		log:    log.With(logx.String("comp", "repl")),
		loc:    loc,
		notice: color.New(color.FgCyan),
		failed: color.New(color.FgRed),
		dim:    color.New(color.Faint),
	}
	if cfg.NoColor {
		for _, c := range []*color.Color{r.notice, r.failed, r.dim} {
			c.DisableColor()
		}
	}
	return r
}

// Run reads lines until exit, EOF, Ctrl+C on an empty line or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	stdin := r.cfg.Stdin
	if stdin == nil {
		stdin = readline.NewCancelableStdin(os.Stdin)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            r.cfg.Prompt,
		HistoryFile:       r.cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             stdin,
		Stdout:            r.cfg.Stdout,
		Stderr:            r.cfg.Stderr,
	})
	if err != nil {
		return fmt.Errorf("repl: init readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintln(out, `homecmd ready. Type ":help" for help.`)

	var wg sync.WaitGroup
	evCtx, stopEvents := context.WithCancel(ctx)
	defer func() {
		stopEvents()
		wg.Wait()
	}()
	if r.bus != nil {
		events, unsub := r.bus.Subscribe(32,
			scheduler.EventFired, scheduler.EventFailed, actions.EventTimerDone)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer unsub()
			r.printEvents(evCtx, events, out)
		}()
	}

	// Close the reader when ctx ends so Readline returns.
	go func() {
		<-evCtx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if strings.TrimSpace(line) == "" {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		reply, quit := r.Exec(ctx, line)
		if reply != "" {
			fmt.Fprintln(out, reply)
		}
		if quit {
			return nil
		}
	}
}

func (r *REPL) printEvents(ctx context.Context, events <-chan eventbus.Event, w io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if msg := r.FormatEvent(ev); msg != "" {
				fmt.Fprintln(w, msg)
			}
		}
	}
}

// Exec runs one input line and returns the text to print.
func (r *REPL) Exec(ctx context.Context, line string) (reply string, quit bool) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return "", false
	case "exit", "quit":
		return "Goodbye!", true
	}
	if strings.HasPrefix(line, ":") {
		return r.meta(line), false
	}

	reply, err := r.app.Handle(ctx, line)
	if err != nil {
		r.log.Debug("request failed", logx.String("line", line), logx.Err(err))
		return r.failed.Sprintf("Sorry, that didn't work: %v", err), false
	}
	return reply, false
}

func (r *REPL) meta(line string) string {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case ":help":
		return helpText
	case ":tasks":
		return r.listTasks(r.app.Tasks().Pending, "No pending tasks.")
	case ":history":
		return r.listTasks(r.app.Tasks().History, "No finished tasks yet.")
	case ":cancel":
		if arg == "" {
			return "Usage: :cancel <id>"
		}
		info, err := r.app.CancelTask(arg)
		if err != nil {
			return r.failed.Sprint(err.Error())
		}
		return fmt.Sprintf("Cancelled %s (%s).", shortID(info.ID), info.Command)
	default:
		return fmt.Sprintf("Unknown command %s. Type :help.", name)
	}
}

func (r *REPL) listTasks(tasks []scheduler.TaskInfo, empty string) string {
	if len(tasks) == 0 {
		return empty
	}
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %-9s %s", shortID(t.ID), t.FireAt.In(r.loc).Format("Mon 15:04:05"), t.Status, t.Command)
		if t.Routine != "" {
			b.WriteString(r.dim.Sprintf("  (routine %s)", t.Routine))
		}
		if t.Error != "" {
			b.WriteString(r.failed.Sprintf("  error: %s", t.Error))
		}
	}
	return b.String()
}

// FormatEvent renders an asynchronous notice, or "" for events not shown.
func (r *REPL) FormatEvent(ev eventbus.Event) string {
	switch ev.Type {
	case scheduler.EventFired:
		t, ok := ev.Data.(scheduler.TaskInfo)
		if !ok {
			return ""
		}
		msg := fmt.Sprintf("[%s] %s", t.Command, t.Reply)
		if t.Routine != "" {
			msg = fmt.Sprintf("[%s: %s] %s", t.Routine, t.Command, t.Reply)
		}
		return r.notice.Sprint(msg)
	case scheduler.EventFailed:
		t, ok := ev.Data.(scheduler.TaskInfo)
		if !ok {
			return ""
		}
		return r.failed.Sprintf("[%s] failed: %s", t.Command, t.Error)
	case actions.EventTimerDone:
		d, ok := ev.Data.(actions.TimerDone)
		if !ok {
			return r.notice.Sprint("Time's up!")
		}
		return r.notice.Sprintf("Time's up! Your %s timer is done.", actions.HumanDuration(d.Duration))
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
