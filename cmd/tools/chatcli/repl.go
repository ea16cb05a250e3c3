package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
)

type suggester interface {
	Suggestions(r role.Role) []string
}

// repl drives one session from line-oriented input. Output is shared with
// the event printer, hence the lock.
type repl struct {
	session *conversation.Session
	suggest suggester
	in      io.Reader

	mu  sync.Mutex
	out io.Writer
}

func newREPL(session *conversation.Session, suggest suggester, in io.Reader, out io.Writer) *repl {
	return &repl{session: session, suggest: suggest, in: in, out: out}
}

// Run reads commands until /quit, end of input or ctx cancellation. At end
// of input it waits for outstanding replies before closing the session.
func (r *repl) Run(ctx context.Context) error {
	events, unsubscribe := r.session.Subscribe(64)
	defer unsubscribe()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			r.render(ev)
		}
	}()

	for _, turn := range r.session.Turns() {
		r.printTurn(turn)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				r.drain(ctx)
				break loop
			}
			quit, err := r.handle(line)
			if err != nil {
				r.printf("! %v\n", err)
			}
			if quit {
				break loop
			}
		}
	}

	r.session.Close()
	<-printed
	return nil
}

func (r *repl) drain(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for r.session.Typing() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *repl) handle(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.submit(line)
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "history":
		for _, turn := range r.session.Turns() {
			r.printTurn(turn)
		}
	case "suggest":
		r.printSuggestions(r.suggest.Suggestions(r.session.Role()))
	case "role":
		next := r.session.Role().Next()
		if arg = strings.TrimSpace(arg); arg != "" {
			next = role.Parse(arg)
		}
		if err := r.session.SetRole(next); err != nil {
			return false, errors.Wrap(err, "switch role")
		}
		r.printf("* vai trò: %s\n", next)
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			return false, errors.Errorf("unknown command %q", line)
		}
		suggestions := r.suggest.Suggestions(r.session.Role())
		if n < 1 || n > len(suggestions) {
			return false, errors.Errorf("no suggestion #%d", n)
		}
		r.printf("Bạn: %s\n", suggestions[n-1])
		return false, r.submit(suggestions[n-1])
	}
	return false, nil
}

func (r *repl) submit(text string) error {
	if _, err := r.session.Submit(text, ""); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

func (r *repl) render(ev chat.Event) {
	switch ev.Type {
	case chat.EventTurn:
		if ev.Turn != nil && ev.Turn.Sender == chat.SenderBot {
			r.printTurn(*ev.Turn)
		}
	case chat.EventTyping:
		if ev.Typing {
			r.printf("... EduPal đang trả lời\n")
		}
	case chat.EventClosed:
		r.printf("* phiên đã kết thúc\n")
	}
}

func (r *repl) printTurn(turn chat.Turn) {
	who := "Bạn"
	if turn.Sender == chat.SenderBot {
		who = "EduPal"
	}
	r.printf("%s [%s]: %s\n", who, turn.Timestamp.Local().Format("15:04"), turn.Text)
	if turn.Sender == chat.SenderBot {
		r.printSuggestions(turn.Suggestions)
	}
}

func (r *repl) printSuggestions(items []string) {
	for i, s := range items {
		r.printf("  /%d %s\n", i+1, s)
	}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
