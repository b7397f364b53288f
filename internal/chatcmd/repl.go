package chatcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/shaharia-lab/gochat"
	"github.com/shaharia-lab/gochat/observability"
)

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	reasoningStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	usageStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// repl is the interactive read-eval-print loop around one chat client.
type repl struct {
	in     *bufio.Scanner
	out    io.Writer
	client *gochat.ChatClient
	logger observability.Logger
	stream bool

	lastAnswer string
	totalUsage gochat.TokenUsage
}

func newREPL(in io.Reader, out io.Writer, client *gochat.ChatClient, logger observability.Logger, stream bool) *repl {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &repl{
		in:     scanner,
		out:    out,
		client: client,
		logger: logger,
		stream: stream,
	}
}

// run reads input lines until EOF or an exit command. Request errors are
// printed and the loop continues; only input and context failures end
// the session.
func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, usageStyle.Render("Type a message, :copy to copy the last answer, :usage for token totals, exit to quit."))

	for {
		fmt.Fprint(r.out, promptStyle.Render("you> "))

		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(r.in.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == ":copy":
			r.copyLastAnswer()
			continue
		case line == ":usage":
			r.printUsage()
			continue
		}

		request, err := parseInput(line)
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			continue
		}

		if r.stream {
			err = r.askStreaming(ctx, request)
		} else {
			err = r.askPlain(ctx, request)
		}
		if err != nil {
			r.logger.WithErr(err).Debug("request failed")
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		}
	}
}

func (r *repl) askPlain(ctx context.Context, request gochat.Content) error {
	completion, err := r.client.RequestCompletion(ctx, request)
	if err != nil {
		return err
	}

	if completion.Reasoning != "" {
		fmt.Fprintln(r.out, reasoningStyle.Render(completion.Reasoning))
	}
	fmt.Fprintln(r.out, answerStyle.Render(completion.Response))

	r.lastAnswer = completion.Response
	r.accumulateUsage(completion.Usage)
	return nil
}

func (r *repl) askStreaming(ctx context.Context, request gochat.Content) error {
	stream, err := r.client.StreamCompletion(ctx, request)
	if err != nil {
		return err
	}
	defer stream.Close()

	var answer strings.Builder
	reasoning := false
	for stream.Next() {
		switch delta := stream.Current().(type) {
		case gochat.ReasoningDelta:
			reasoning = true
			fmt.Fprint(r.out, reasoningStyle.Render(string(delta)))
		case gochat.ContentDelta:
			if reasoning {
				// Separate the answer from the reasoning block.
				fmt.Fprintln(r.out)
				reasoning = false
			}
			answer.WriteString(string(delta))
			fmt.Fprint(r.out, answerStyle.Render(string(delta)))
		case gochat.UsageDelta:
			r.accumulateUsage(gochat.TokenUsage(delta))
		}
	}
	fmt.Fprintln(r.out)

	if err := stream.Err(); err != nil {
		return err
	}

	r.lastAnswer = answer.String()
	return nil
}

func (r *repl) copyLastAnswer() {
	if r.lastAnswer == "" {
		fmt.Fprintln(r.out, usageStyle.Render("nothing to copy yet"))
		return
	}
	if err := clipboard.WriteAll(r.lastAnswer); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("clipboard unavailable: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, usageStyle.Render("copied last answer to clipboard"))
}

func (r *repl) printUsage() {
	fmt.Fprintln(r.out, usageStyle.Render(fmt.Sprintf(
		"session tokens: input %d (cached %d), output %d (reasoning %d); context %d tokens over %d turns",
		r.totalUsage.InputTokens, r.totalUsage.CachedInputTokens,
		r.totalUsage.OutputTokens, r.totalUsage.ReasoningTokens,
		r.client.Conversation().Tokens(), r.client.Conversation().Len(),
	)))
}

func (r *repl) accumulateUsage(usage gochat.TokenUsage) {
	r.totalUsage.InputTokens += usage.InputTokens
	r.totalUsage.CachedInputTokens += usage.CachedInputTokens
	r.totalUsage.OutputTokens += usage.OutputTokens
	r.totalUsage.ReasoningTokens += usage.ReasoningTokens
}
