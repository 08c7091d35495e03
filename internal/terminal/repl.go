// Package terminal is the interactive command-line front-end of the tutor.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/pacer"
	"ds-tutor/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	tutorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// LineReader reads one line of user input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) string

// NewMarkdownRenderer returns a glamour renderer, or a pass-through renderer
// when glamour cannot be initialised.
func NewMarkdownRenderer(width int) Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}

type REPL struct {
	ctrl        *session.Controller
	in          LineReader
	out         io.Writer
	render      Renderer
	typingDelay time.Duration
	exportDir   string
}

type Options struct {
	Renderer    Renderer
	TypingDelay time.Duration
	// ExportDir is where /export writes when no path is given.
	ExportDir string
}

func New(ctrl *session.Controller, in LineReader, out io.Writer, opts Options) *REPL {
	render := opts.Renderer
	if render == nil {
		render = func(s string) string { return s }
	}
	dir := opts.ExportDir
	if dir == "" {
		dir = "."
	}
	return &REPL{
		ctrl:        ctrl,
		in:          in,
		out:         out,
		render:      render,
		typingDelay: opts.TypingDelay,
		exportDir:   dir,
	}
}

// Run asks for a username, then answers questions until /quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, titleStyle.Render("Data Science Tutor"))

	st, err := r.login()
	if err != nil {
		return err
	}
	if !st.Active() {
		return nil
	}
	r.showHistory(st)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.in.Prompt(promptStyle.Render("Ask me about Data Science> "))
		if err != nil {
			fmt.Fprintln(r.out)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			var quit bool
			st, quit = r.command(st, line)
			if quit {
				return nil
			}
			continue
		}
		st = r.ask(ctx, st, line)
	}
}

func (r *REPL) login() (session.State, error) {
	for {
		name, err := r.in.Prompt("Enter your username: ")
		if err != nil {
			fmt.Fprintln(r.out)
			return session.State{}, nil
		}
		st, notice, err := r.ctrl.Start(strings.TrimSpace(name))
		if errors.Is(err, session.ErrEmptyUserID) {
			fmt.Fprintln(r.out, errorStyle.Render("Please provide a username."))
			continue
		}
		if err != nil {
			return session.State{}, err
		}
		fmt.Fprintf(r.out, "Hello, %s! %s\n", st.UserID, r.notice(notice))
		fmt.Fprintln(r.out, "Commands: /clear, /export [path], /history, /help, /quit")
		return st, nil
	}
}

func (r *REPL) command(st session.State, line string) (session.State, bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return st, true
	case "/clear":
		next, notice, err := r.ctrl.Clear(st)
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
			return st, false
		}
		fmt.Fprintln(r.out, r.notice(notice))
		return next, false
	case "/export":
		r.export(st, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
	case "/history":
		r.showHistory(st)
	case "/help":
		fmt.Fprintln(r.out, "Ask a question about Machine Learning, Python for Data Science, Data Visualization or Deep Learning.")
		fmt.Fprintln(r.out, "Commands: /clear, /export [path], /history, /help, /quit")
	default:
		fmt.Fprintln(r.out, warningStyle.Render("Unknown command: "+fields[0]))
	}
	return st, false
}

func (r *REPL) ask(ctx context.Context, st session.State, query string) session.State {
	fmt.Fprintln(r.out, promptStyle.Render("Thinking..."))
	next, reply, err := r.ctrl.Ask(ctx, st, query)
	if err != nil && !errors.Is(err, session.ErrPersist) {
		fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
		return st
	}

	// the rendered markdown is what gets revealed word by word
	rendered := r.render(reply)
	fmt.Fprint(r.out, tutorStyle.Render("Tutor:")+" ")
	printed := 0
	_ = pacer.Reveal(ctx, rendered, r.typingDelay, 1, func(partial string) {
		fmt.Fprint(r.out, partial[printed:])
		printed = len(partial)
	})
	fmt.Fprintln(r.out)

	if err != nil {
		fmt.Fprintln(r.out, warningStyle.Render("Warning: "+err.Error()))
	}
	return next
}

func (r *REPL) export(st session.State, path string) {
	ex, ok := r.ctrl.Export(st)
	if !ok {
		fmt.Fprintln(r.out, warningStyle.Render(session.NoticeNoHistory))
		return
	}
	if path == "" {
		path = filepath.Join(r.exportDir, ex.FileName)
	}
	if err := os.WriteFile(path, ex.Data, 0o644); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, successStyle.Render("Chat history saved to "+path))
}

func (r *REPL) showHistory(st session.State) {
	if len(st.History) == 0 {
		fmt.Fprintln(r.out, "Tip: Ask me anything about data science!")
		return
	}
	for _, t := range st.History {
		r.showTurn(t)
	}
}

func (r *REPL) showTurn(t chatlog.Turn) {
	fmt.Fprintln(r.out, userStyle.Render("You:")+" "+t.User)
	fmt.Fprintln(r.out, tutorStyle.Render("Tutor:")+" "+r.render(t.AI))
}

func (r *REPL) notice(n session.Notice) string {
	switch n.Level {
	case session.LevelSuccess:
		return successStyle.Render(n.Text)
	case session.LevelWarning:
		return warningStyle.Render(n.Text)
	default:
		return n.Text
	}
}
