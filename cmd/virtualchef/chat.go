package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sanny1998/Virtual-chef/internal/config"
	"github.com/Sanny1998/Virtual-chef/internal/conversation"
	"github.com/Sanny1998/Virtual-chef/internal/display"
	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/metrics"
	"github.com/Sanny1998/Virtual-chef/internal/timer"
)

const helpText = `Commands:
  /name <name>   set your name
  /timers        list your timers
  /help          show this help
  /quit          exit
Say "hi" to start, or ask for a recipe once your preferences are set.`

// printer is the output side of a chat front end.
type printer interface {
	PrintReply(text string)
	PrintHint(text string)
	PrintUrgent(text string)
}

// chat handles one user's lines against the session registry.
type chat struct {
	app *app
	out printer
}

// runChat starts the chat front end, the timer poller and, if configured,
// the metrics server. It returns when the user quits or ctx is cancelled.
func runChat(ctx context.Context, cfg config.Config, f *flags) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.User.Name != "" {
		if err := a.sessions.SetName(ctx, a.userID, cfg.User.Name); err != nil {
			a.log.Warn("saving name: %v", err)
		}
	}

	// Whichever front end exits first stops everything else.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(a.registry), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.log.Info("metrics listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if f.plain || !display.IsInteractive() {
		out := conversation.NewWriterNotifier(os.Stdout, false, a.log)
		c := &chat{app: a, out: plainPrinter{n: out}}
		poller := timer.New(a.store, out, a.log,
			timer.WithTickInterval(cfg.PollInterval()), timer.WithMetrics(a.metrics))
		g.Go(func() error { return poller.Run(gctx) })
		g.Go(func() error {
			defer cancel()
			return c.runPlain(gctx, os.Stdin)
		})
		return ignoreCanceled(g.Wait())
	}

	ui := display.NewUI(a.store, a.userID)
	c := &chat{app: a, out: ui}
	poller := timer.New(a.store, ui, a.log,
		timer.WithTickInterval(cfg.PollInterval()), timer.WithMetrics(a.metrics))

	fmt.Print(display.RenderBanner("your step-by-step kitchen companion"))
	fmt.Println()

	g.Go(func() error {
		// Bubble Tea owns the terminal until the user quits.
		defer cancel()
		return ui.Run()
	})
	g.Go(func() error {
		select {
		case <-ui.Ready():
		case <-ui.QuitChan():
			return nil
		}
		poller.Start(gctx)
		defer poller.Stop()
		c.runUI(gctx, ui)
		ui.Quit()
		return nil
	})
	return ignoreCanceled(g.Wait())
}

// runUI reads lines from the terminal UI until quit.
func (c *chat) runUI(ctx context.Context, ui *display.UI) {
	c.out.PrintHint(`Say "hi" to begin. Type /help for commands.`)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ui.QuitChan():
			return
		case line := <-ui.InputChan():
			if c.handle(ctx, line) {
				return
			}
		}
	}
}

// runPlain reads lines from r until EOF, /quit or ctx is cancelled.
func (c *chat) runPlain(ctx context.Context, r io.Reader) error {
	c.out.PrintHint(`Say "hi" to begin. Type /help for commands.`)

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if c.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle processes one input line. It reports whether the user asked to
// quit.
func (c *chat) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "/quit", "/exit":
		c.out.PrintHint("Happy cooking!")
		return true
	case "/help":
		c.out.PrintHint(helpText)
		return false
	case "/name":
		c.setName(ctx, strings.TrimSpace(arg))
		return false
	case "/timers":
		c.listTimers(ctx)
		return false
	}

	turn, err := c.app.sessions.Handle(ctx, c.app.userID, line)
	if err != nil {
		c.app.log.Error("turn: %v", err)
		c.out.PrintUrgent(turn.Reply)
		return false
	}
	c.out.PrintReply(turn.Reply)
	return false
}

func (c *chat) setName(ctx context.Context, name string) {
	if name == "" {
		c.out.PrintHint("Usage: /name <your name>")
		return
	}
	if err := c.app.sessions.SetName(ctx, c.app.userID, name); err != nil {
		c.app.log.Error("setting name: %v", err)
		c.out.PrintUrgent("Could not save your name.")
		return
	}
	c.out.PrintReply(fmt.Sprintf("Nice to meet you, %s!", name))
}

func (c *chat) listTimers(ctx context.Context) {
	ts, err := c.app.store.Timers(ctx, c.app.userID)
	if err != nil {
		c.app.log.Error("listing timers: %v", err)
		c.out.PrintUrgent("Could not load your timers.")
		return
	}
	if len(ts) == 0 {
		c.out.PrintHint("No timers yet.")
		return
	}
	c.out.PrintReply(formatTimers(ts, time.Now()))
}

// formatTimers renders one line per timer.
func formatTimers(ts []domain.Timer, now time.Time) string {
	var b strings.Builder
	for i, t := range ts {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "due in " + t.WakeAt.Sub(now).Round(time.Second).String()
		switch {
		case t.Fired:
			status = "fired"
		case !t.WakeAt.After(now):
			status = "due now"
		}
		fmt.Fprintf(&b, "- #%d %s at %s (%s)", t.ID, t.Label, t.WakeAt.Format("15:04:05"), status)
	}
	return b.String()
}

// plainPrinter writes through a WriterNotifier so replies and timer
// notifications never interleave mid-line.
type plainPrinter struct {
	n *conversation.WriterNotifier
}

func (p plainPrinter) PrintReply(text string)  { _ = p.n.Notify(context.Background(), text) }
func (p plainPrinter) PrintHint(text string)   { _ = p.n.Notify(context.Background(), text) }
func (p plainPrinter) PrintUrgent(text string) { _ = p.n.NotifyUrgent(context.Background(), text) }

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
