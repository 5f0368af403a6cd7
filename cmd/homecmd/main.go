package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"homecmd/internal/app"
	"homecmd/internal/command"
	"homecmd/internal/repl"
)

func main() {
	var (
		cfgPath   string
		normalize bool
		once      string
		noColor   bool
	)
	flag.StringVar(&cfgPath, "config", "./homecmd.yaml", "path to config yaml/json (defaults when missing)")
	flag.BoolVar(&normalize, "normalize", false, "print the canonical command for each argument (or stdin line) and exit")
	flag.StringVar(&once, "once", "", "run a single request, print the reply and exit")
	flag.BoolVar(&noColor, "no-color", false, "disable colored output")
	flag.Parse()

	if normalize {
		os.Exit(runNormalize(flag.Args()))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = a.Close(stopCtx)
	}()

	cfg := a.Config()
	r := repl.New(repl.Config{
		Prompt:      cfg.REPL.Prompt,
		HistoryFile: cfg.REPL.HistoryFile,
		NoColor:     noColor,
	}, a, a.Bus(), a.Logger(), a.Location())

	if once != "" {
		ev, err := a.Once(ctx, once, func(reply string) { fmt.Println(reply) })
		if msg := r.FormatEvent(ev); msg != "" {
			fmt.Println(msg)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	a.Start(ctx)
	if err := r.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
	}
}

func runNormalize(args []string) int {
	emit := func(s string) { fmt.Println(command.Normalize(s)) }
	if len(args) > 0 {
		for _, s := range args {
			emit(s)
		}
		return 0
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		emit(sc.Text())
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "read stdin:", err)
		return 1
	}
	return 0
}
