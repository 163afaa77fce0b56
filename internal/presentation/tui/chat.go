// Package tui implements the chat-style terminal front end: it renders
// "show question" events and forwards raw answers, which is all the
// delivery channel contract asks of it.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/session"
)

// Chat walks one respondent through a survey interactively.
type Chat struct {
	walker  *session.Walker
	in      *bufio.Scanner
	out     io.Writer
	render  func(string) (string, error)
	profile termenv.Profile
}

// ChatOption configures the Chat.
type ChatOption func(*Chat)

// WithIO overrides the input/output streams (used by tests).
func WithIO(in io.Reader, out io.Writer) ChatOption {
	return func(c *Chat) {
		c.in = bufio.NewScanner(in)
		c.out = out
	}
}

// WithRenderer overrides the markdown renderer.
func WithRenderer(render func(string) (string, error)) ChatOption {
	return func(c *Chat) {
		c.render = render
	}
}

// WithProfile forces a color profile (tests use termenv.Ascii).
func WithProfile(p termenv.Profile) ChatOption {
	return func(c *Chat) {
		c.profile = p
	}
}

// NewChat creates a chat session over the given walker.
func NewChat(walker *session.Walker, opts ...ChatOption) *Chat {
	c := &Chat{
		walker:  walker,
		render:  PlainRenderer(),
		profile: termenv.ColorProfile(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts a response and loops until completion or EOF on input.
func (c *Chat) Run(ctx context.Context, surveyID int64, respondentID string) error {
	event, err := c.walker.Start(ctx, surveyID, respondentID)
	if err != nil {
		return err
	}

	for event.Kind == session.EventShowQuestion {
		ans, err := c.ask(event.Question)
		if err != nil {
			return err
		}

		next, err := c.walker.Answer(ctx, event.Response.ID, ans)
		if err != nil {
			if flow.IsRuntimeGuard(err) {
				fmt.Fprintln(c.out, c.dim(err.Error()))
				continue
			}
			var notOwned *flow.OptionNotOwnedError
			if errors.As(err, &notOwned) {
				fmt.Fprintln(c.out, c.dim("that is not one of the options, try again"))
				continue
			}
			return err
		}
		event = next
	}

	fmt.Fprintln(c.out, c.bold("Thanks, that's all we needed!"))
	return nil
}

// ask renders the question and reads one answer from input.
func (c *Chat) ask(q *flow.Question) (flow.Answer, error) {
	text, err := c.render("### " + q.Text)
	if err != nil {
		text = q.Text + "\n"
	}
	fmt.Fprint(c.out, text)

	if len(q.Options) > 0 {
		for i, opt := range q.Options {
			fmt.Fprintf(c.out, "  %s %s\n", c.bold(fmt.Sprintf("%d.", i+1)), opt.Text)
		}
	}

	for {
		fmt.Fprint(c.out, c.prompt("> "))
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return flow.Answer{}, err
			}
			return flow.Answer{}, io.EOF
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}

		if len(q.Options) == 0 {
			return flow.Answer{Value: line}, nil
		}

		// Choice questions take the option number from the menu above.
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(q.Options) {
			fmt.Fprintln(c.out, c.dim(fmt.Sprintf("pick a number between 1 and %d", len(q.Options))))
			continue
		}
		opt := q.Options[n-1]
		return flow.Answer{OptionID: opt.ID, Value: opt.Text}, nil
	}
}

func (c *Chat) bold(s string) string {
	if c.profile == termenv.Ascii {
		return s
	}
	return termenv.String(s).Bold().String()
}

func (c *Chat) dim(s string) string {
	return c.style(s, termenv.ANSIBrightBlack)
}

func (c *Chat) prompt(s string) string {
	return c.style(s, termenv.ANSICyan)
}

func (c *Chat) style(s string, color termenv.Color) string {
	if c.profile == termenv.Ascii {
		return s
	}
	return termenv.String(s).Foreground(color).String()
}
