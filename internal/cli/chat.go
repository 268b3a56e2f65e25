// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the datachat CLI.
//
// USABILITY: Readline-style input with history for the plain-terminal REPL
//
// Handles the "datachat chat" command, a REPL alternative to the TUI for
// environments where an alternate-screen interface is unwanted (ssh
// sessions, logging terminals, scripted demos).
//
// Interactive commands (during chat):
//
//	/new                Start a new conversation
//	/sessions           List conversations
//	/switch N           Switch to conversation N
//	/csv PATH           Attach a CSV dataset for analysis
//	/cleardata          Detach the active dataset
//	/image PATH [TEXT]  Send an image turn with an optional prompt
//	/help               Show available commands
//	/quit               Exit
//	Ctrl+C              Cancel the current response
//	Ctrl+D              Exit

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/controller"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI(cfg *config.Config) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			historyFile = path
		}
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// SECURITY: 0600 - owner read/write only
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// STREAM PRINTING
// =============================================================================

// streamPrinter echoes assistant deltas to stdout as they arrive. The
// controller invokes notify on the turn goroutine, so no locking is needed
// as long as the REPL submits turns synchronously.
type streamPrinter struct {
	ctrl    *controller.Controller
	openID  string
	printed int
}

// flush prints any new content appended to the open assistant message.
func (p *streamPrinter) flush() {
	store := p.ctrl.Transcript()
	id := store.OpenID()
	if id == "" {
		return
	}
	if id != p.openID {
		p.openID = id
		p.printed = 0
	}
	msg := store.Get(id)
	if msg == nil {
		return
	}
	content := msg.DisplayContent()
	if len(content) > p.printed {
		fmt.Print(render(assistantStyle, content[p.printed:]))
		p.printed = len(content)
	}
}

// reset prepares the printer for the next turn.
func (p *streamPrinter) reset() {
	p.openID = ""
	p.printed = 0
}

// =============================================================================
// REPL
// =============================================================================

// RunChat runs the interactive REPL against an already-bootstrapped
// controller.
func RunChat(ctrl *controller.Controller, cfg *config.Config, quiet bool) error {
	input := NewChatCLI(cfg)
	defer input.Close()

	printer := &streamPrinter{ctrl: ctrl}
	ctrl.SetNotify(printer.flush)
	defer ctrl.SetNotify(nil)

	// First Ctrl+C during a response cancels the stream; liner surfaces
	// Ctrl+C at the prompt as ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			ctrl.CancelTurn()
			fmt.Fprintln(os.Stderr, "\n"+render(warningStyle, "[Cancelled]"))
		}
	}()

	if !quiet {
		printWelcome(ctrl)
	}

	ctx := context.Background()
	for {
		line, err := input.ReadInput(render(promptStyle, "datachat> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D: exit gracefully.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := runSlash(ctx, ctrl, printer, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		runTurn(ctx, ctrl, printer, line, controller.TurnOptions{})
	}
}

// runTurn submits one turn and finishes the printed response with a
// trailing newline and any plot badges.
func runTurn(ctx context.Context, ctrl *controller.Controller, printer *streamPrinter, text string, opts controller.TurnOptions) {
	printer.reset()
	before := ctrl.Transcript().Len()

	if err := ctrl.SubmitTurn(ctx, text, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
		return
	}

	// Streaming already echoed the deltas; terminate the line and report
	// artifacts that a plain terminal cannot display inline.
	fmt.Println()
	msgs := ctrl.Transcript().Messages()
	if len(msgs) > before {
		last := msgs[len(msgs)-1]
		if n := len(last.Plots); n > 0 {
			fmt.Println(render(badgeStyle, fmt.Sprintf("[%d plot(s) generated - view in the TUI]", n)))
		}
	}
}

// runSlash dispatches a slash command. It returns false when the REPL
// should exit.
func runSlash(ctx context.Context, ctrl *controller.Controller, printer *streamPrinter, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h":
		printReplHelp()
		return true, nil

	case "/new", "/n":
		if err := ctrl.NewConversation(ctx); err != nil {
			return true, err
		}
		fmt.Println(render(infoStyle, "Started a new conversation."))
		return true, nil

	case "/sessions", "/s":
		return true, printSessions(ctx, ctrl)

	case "/switch":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /switch N")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return true, fmt.Errorf("invalid conversation id %q", args[0])
		}
		if err := ctrl.LoadConversation(ctx, id); err != nil {
			return true, err
		}
		_, title := ctrl.ActiveConversation()
		fmt.Println(render(infoStyle, "Switched to: "+title))
		return true, nil

	case "/csv":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /csv PATH")
		}
		if err := ctrl.AttachDataset(ctx, args[0]); err != nil {
			return true, err
		}
		fmt.Println(render(infoStyle, "Dataset loaded: "+ctrl.DatasetLabel()))
		return true, nil

	case "/cleardata":
		if !ctrl.AnalysisActive() {
			fmt.Println(render(infoStyle, "No dataset is attached."))
			return true, nil
		}
		ctrl.ClearAnalysisMode(ctx)
		fmt.Println(render(infoStyle, "Dataset detached; back to chat mode."))
		return true, nil

	case "/saveplots":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		written, err := ctrl.ExportPlots(dir)
		if err != nil {
			return true, err
		}
		if len(written) == 0 {
			fmt.Println(render(infoStyle, "No plots in this conversation."))
			return true, nil
		}
		for _, path := range written {
			fmt.Println(render(infoStyle, "Wrote "+path))
		}
		return true, nil

	case "/image":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /image PATH [PROMPT]")
		}
		prompt := strings.Join(args[1:], " ")
		runTurn(ctx, ctrl, printer, prompt, controller.TurnOptions{ImagePath: args[0]})
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printWelcome shows the session banner.
func printWelcome(ctrl *controller.Controller) {
	_, title := ctrl.ActiveConversation()
	fmt.Println(render(welcomeStyle, "datachat - interactive chat"))
	fmt.Println(render(infoStyle, "Conversation: "+title))
	if msgs := ctrl.Transcript().Messages(); len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		fmt.Println(render(infoStyle, "Last message: "+last.Preview(60)))
	}
	if ctrl.AnalysisActive() {
		fmt.Println(render(infoStyle, "Dataset: "+ctrl.DatasetLabel()))
	}
	fmt.Println(render(infoStyle, "Type /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

// printReplHelp lists interactive commands.
func printReplHelp() {
	fmt.Println(render(infoStyle, `Commands:
  /new                Start a new conversation
  /sessions           List conversations
  /switch N           Switch to conversation N
  /csv PATH           Attach a CSV dataset for analysis
  /cleardata          Detach the active dataset
  /image PATH [TEXT]  Send an image turn with an optional prompt
  /saveplots [DIR]    Save generated plots as PNG files
  /quit               Exit`))
}

// printSessions lists conversations, marking the active one.
func printSessions(ctx context.Context, ctrl *controller.Controller) error {
	convs, err := ctrl.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println(render(infoStyle, "No conversations yet."))
		return nil
	}
	activeID, _ := ctrl.ActiveConversation()
	for _, conv := range convs {
		marker := "  "
		if conv.ID == activeID {
			marker = render(promptStyle, "* ")
		}
		fmt.Printf("%s%-6d %s\n", marker, conv.ID, conv.Title)
	}
	return nil
}
