package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/whitelabel-ai/askai-service/internal/chat"
)

var (
	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))
)

const chatHelp = `Commands:
  /ask <question>   generate code only
  /apply [id]       apply a suggestion (default: the latest)
  /code <code>      set the node code to diff against
  /new              start a new session
  /quit             exit`

func newChatCmd() *cobra.Command {
	var (
		serverURL string
		license   string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running askai server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(serverURL, license, timeout)
			if err := client.authenticate(cmd.Context()); err != nil {
				return err
			}
			return runREPL(cmd.Context(), client, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "askai server URL")
	cmd.Flags().StringVar(&license, "license", "", "licence certificate used to obtain tokens")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "per-request timeout")
	_ = cmd.MarkFlagRequired("license")
	return cmd
}

// replState is what the REPL remembers between turns
type replState struct {
	sessionID      string
	lastSuggestion string
	originalCode   string
}

func runREPL(ctx context.Context, client *apiClient, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".askai_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(out, titleStyle.Render("askai chat")+"  "+toolStyle.Render("/help for commands"))

	state := &replState{}
	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := handleInput(ctx, client, state, input, out)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

// handleInput runs one REPL command or chat turn. It reports whether the
// user asked to quit.
func handleInput(ctx context.Context, client *apiClient, state *replState, input string, out io.Writer) (bool, error) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
		return false, nil
	case "/new":
		*state = replState{}
		fmt.Fprintln(out, toolStyle.Render("new session"))
		return false, nil
	case "/code":
		state.originalCode = arg
		fmt.Fprintln(out, toolStyle.Render("node code set"))
		return false, nil
	case "/ask":
		code, err := client.ask(ctx, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, codeStyle.Render(code))
		return false, nil
	case "/apply":
		id := arg
		if id == "" {
			id = state.lastSuggestion
		}
		if id == "" {
			return false, errors.New("no suggestion to apply")
		}
		code, err := client.apply(ctx, state.sessionID, id)
		if err != nil {
			return false, err
		}
		state.originalCode = code
		fmt.Fprintln(out, titleStyle.Render("applied"))
		fmt.Fprintln(out, codeStyle.Render(code))
		return false, nil
	}

	req := chat.ChatRequest{SessionID: state.sessionID, Payload: chat.ChatPayload{Text: input}}
	if state.originalCode != "" {
		req.Payload.Context = &chat.NodeContext{OriginalCode: state.originalCode}
	}
	resp, err := client.chat(ctx, req)
	if err != nil {
		return false, err
	}

	state.sessionID = resp.SessionID
	for _, m := range resp.Messages {
		if m.Type == chat.TypeCodeDiff {
			state.lastSuggestion = m.SuggestionID
		}
	}
	fmt.Fprint(out, renderMessages(resp.Messages))
	return false, nil
}

// renderMessages formats a reply for the terminal. Running tool messages are
// skipped since the completed ones follow.
func renderMessages(messages []chat.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Type {
		case chat.TypeTool:
			if m.Status == chat.ToolCompleted {
				b.WriteString(toolStyle.Render("✓ "+m.DisplayTitle) + "\n")
			}
		case chat.TypeBlock:
			b.WriteString(titleStyle.Render(m.Title) + "\n" + m.Content + "\n")
		case chat.TypeMessage:
			if m.Text != "" {
				b.WriteString(m.Text + "\n")
			}
			if m.CodeSnippet != "" {
				b.WriteString(codeStyle.Render(m.CodeSnippet) + "\n")
			}
		case chat.TypeCodeDiff:
			b.WriteString(titleStyle.Render(m.Description) + "\n")
			for _, l := range strings.Split(m.CodeDiff, "\n") {
				switch {
				case strings.HasPrefix(l, "+"):
					b.WriteString(codeStyle.Render(l) + "\n")
				case strings.HasPrefix(l, "-"):
					b.WriteString(removedStyle.Render(l) + "\n")
				default:
					b.WriteString(l + "\n")
				}
			}
			b.WriteString(toolStyle.Render("/apply "+m.SuggestionID) + "\n")
		case chat.TypeError:
			b.WriteString(errorStyle.Render(m.Content) + "\n")
		}

		for _, r := range m.QuickReplies {
			b.WriteString(replyStyle.Render("  • "+r.Text) + "\n")
		}
	}
	return b.String()
}
