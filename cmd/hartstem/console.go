package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jmolenaar/hartstem/internal/bus"
	"github.com/jmolenaar/hartstem/internal/session"
)

// console is the interactive front-end: stdin lines go to the engine,
// bus events come back as printed output.
type console struct {
	mgr    *session.Manager
	events *bus.Bus
	apiKey string
	in     io.Reader

	mu      sync.Mutex
	out     io.Writer
	inDelta bool // an assistant fragment is on the current line
}

func newConsole(mgr *session.Manager, events *bus.Bus, apiKey string, in io.Reader, out io.Writer) *console {
	return &console{mgr: mgr, events: events, apiKey: apiKey, in: in, out: out}
}

// Run connects the session and processes input until ctx is cancelled,
// stdin closes or the user quits.
func (c *console) Run(ctx context.Context) error {
	unsubscribe := c.events.Subscribe(c.render)
	defer unsubscribe()

	if err := c.mgr.Connect(ctx, c.apiKey); err != nil {
		return fmt.Errorf("connecting session: %w", err)
	}

	c.printf("Typ een bericht, of gebruik /record, /stop, /summary, /quit.\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				c.printf("fout: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *console) handle(ctx context.Context, line string) (quit bool, err error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case line == "/record":
		return false, c.mgr.StartAudioCapture(ctx)
	case line == "/stop":
		return false, c.mgr.StopAudioCapture(ctx)
	case line == "/summary":
		c.printSummary()
		return false, nil
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("onbekend commando %q", line)
	default:
		return false, c.mgr.SendText(ctx, line)
	}
}

// render writes bus events to the terminal. Assistant text streams in
// place; everything else gets its own line.
func (c *console) render(ev bus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case bus.TextDelta:
		if !c.inDelta {
			fmt.Fprint(c.out, "arts: ")
			c.inDelta = true
		}
		fmt.Fprint(c.out, e.Text)
	case bus.TextComplete:
		if c.inDelta {
			fmt.Fprintln(c.out)
			c.inDelta = false
		} else {
			fmt.Fprintf(c.out, "arts: %s\n", e.Text)
		}
	case bus.Error:
		c.breakLine()
		fmt.Fprintf(c.out, "! %s\n", e.Message)
	case bus.Connected:
		fmt.Fprintln(c.out, "— verbonden —")
	case bus.Disconnected:
		c.breakLine()
		fmt.Fprintln(c.out, "— verbinding gesloten —")
	case bus.RecordingStarted:
		fmt.Fprintln(c.out, "— opname gestart —")
	case bus.RecordingStopped:
		fmt.Fprintln(c.out, "— opname gestopt —")
	case bus.UserSpeaking:
		if e.Speaking {
			fmt.Fprintln(c.out, "… spraak gedetecteerd")
		}
	}
}

// breakLine terminates a half-finished assistant line before a
// standalone message. Callers must hold c.mu.
func (c *console) breakLine() {
	if c.inDelta {
		fmt.Fprintln(c.out)
		c.inDelta = false
	}
}

func (c *console) printSummary() {
	s := c.mgr.Summary()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()

	fmt.Fprintf(c.out, "sessie:          %s\n", s.SessionID)
	fmt.Fprintf(c.out, "status:          %s\n", s.State)
	fmt.Fprintf(c.out, "fase:            %s\n", s.Phase)
	fmt.Fprintf(c.out, "vragen gesteld:  %d\n", s.QuestionsAsked)
	fmt.Fprintf(c.out, "symptomen:       %s\n", joinOrDash(s.PatientData.Symptoms))
	fmt.Fprintf(c.out, "medicijnen:      %s\n", joinOrDash(s.PatientData.Medications))
	fmt.Fprintf(c.out, "duur klachten:   %s\n", orDash(s.PatientData.Duration))
	fmt.Fprintf(c.out, "ernst:           %s\n", orDash(s.PatientData.Severity))
	fmt.Fprintf(c.out, "transcript:      %d beurten\n", len(s.Transcript))
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()
	fmt.Fprintf(c.out, format, args...)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
