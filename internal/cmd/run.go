package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ferroterm/ferroterm/internal/command"
	"github.com/ferroterm/ferroterm/internal/config"
	"github.com/ferroterm/ferroterm/internal/input"
	"github.com/ferroterm/ferroterm/internal/modelhost"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
	"github.com/ferroterm/ferroterm/internal/ptyboundary"
	"github.com/ferroterm/ferroterm/internal/streamingui"
)

// newRunCmd wraps a shell (or any command) in the PTY/grid pipeline and
// wires an Agent Command prefix straight into the configured Model
// Host. Grounded on the teacher's foreground overlay loop
// (internal/session/client/overlay.go's Run): raw mode, a PTY read
// loop, a stdin read loop, SIGWINCH handling, restore-on-exit — but
// collapsed to a single process, since this core has no multi-client
// attach/daemon protocol to serve, and with the teacher's
// midterm.Terminal/Client replaced by ptyboundary.Boundary plus the
// Model Host/Streaming UI pipeline for agent commands.
func newRunCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Wrap a shell in the terminal core, routing agent-prefixed lines to the Model Host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(args[0], args[1:], modelName)
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "model to route agent commands to (defaults to the first configured model)")
	return cmd
}

func runForeground(shellCmd string, shellArgs []string, modelName string) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("run: stdin is not a terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fd := int(os.Stdin.Fd())
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	const reservedRows = 1 // one status line reserved for agent-response rendering
	childRows := rows - reservedRows
	if childRows < 1 {
		childRows = rows
	}

	log := newSessionLogger(cfg)
	defer log.Close()

	host := modelhost.New(totalVramMB(cfg), log)
	if err := registerModels(host, cfg); err != nil {
		return err
	}
	if modelName == "" && len(cfg.Models) > 0 {
		modelName = cfg.Models[0].Name
	}

	cmdParser := command.NewWithConfig(cfg.Prefix, cfg.ContextLines, cfg.IncludeEnv)
	prefixRune := '/'
	if r := []rune(cfg.Prefix); len(r) > 0 {
		prefixRune = r[0]
	}
	processor := input.New(prefixRune, cmdParser)

	boundary := ptyboundary.New(childRows, cols, cfg.Streaming.ScrollBufferLines)
	if err := boundary.StartPTY(shellCmd, shellArgs, childRows, cols, nil); err != nil {
		return fmt.Errorf("start pty: %w", err)
	}

	renderer := newStatusLineRenderer(cols)
	ui := streamingui.New(host, renderer, streamConfigFromYAML(cfg.Streaming), cols, reservedRows)
	ui.Start()
	defer ui.Stop()

	restore, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer func() {
		term.Restore(fd, restore)
		fmt.Print("\r\n")
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	go watchResize(boundary, sigCh, reservedRows)

	// PipeOutput feeds Boundary's parser/grid/scrollback and, via
	// onData, forwards the same raw bytes straight to this process's
	// real stdout: the GPU renderer is the eventual consumer of the
	// grid snapshot, but until one is attached this passthrough is
	// what keeps `run` usable from an actual terminal.
	go boundary.PipeOutput(func(chunk []byte) {
		os.Stdout.Write(chunk)
	})

	exitCh := make(chan error, 1)
	go func() { exitCh <- boundary.Cmd.Wait() }()

	stdinCh := make(chan []byte, 64)
	go readStdin(stdinCh)

	for {
		select {
		case err := <-exitCh:
			return err
		case chunk, ok := <-stdinCh:
			if !ok {
				return nil
			}
			dispatchInput(chunk, boundary, processor, cmdParser, ui, modelName, cfg.ContextLines)
		}
	}
}

func readStdin(out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

func dispatchInput(chunk []byte, b *ptyboundary.Boundary, processor *input.Processor, cmdParser *command.Parser, ui *streamingui.UI, modelName string, contextLines int) {
	for _, ev := range input.Decode(chunk, time.Now()) {
		for _, action := range processor.Process(ev) {
			switch action.Kind {
			case input.ActionSendToTerminal:
				b.WritePTY([]byte(action.Text), 2*time.Second)
			case input.ActionExecuteParsedCommand:
				if action.Parsed.Kind != command.KindAgent {
					continue
				}
				agentCmd := action.Parsed.Agent
				if ctx, err := cmdParser.CollectContext(); err == nil {
					// The boundary's plain-history capture is the live
					// scrollback source; the parser only owns the env/cwd
					// snapshot here.
					ctx.ScrollbackLines = b.RecentPlainLines(contextLines)
					agentCmd.Context = ctx
				}
				model := modelName
				if agentCmd.HasModel {
					model = agentCmd.ModelOverride
				}
				req := adapter.Request{
					Prompt:    agentCmd.Prompt,
					ModelName: model,
					Stream:    true,
				}
				if agentCmd.HasTemperature {
					req.Parameters.Temperature = agentCmd.Temperature
				}
				if agentCmd.HasMaxTokens {
					req.Parameters.MaxTokens = agentCmd.MaxTokens
				}
				go func() {
					_, _ = ui.StartStreamingResponse(context.Background(), req)
				}()
			case input.ActionInterrupt:
				// Interrupt the streaming response if one is active;
				// otherwise the keystroke belongs to the child shell.
				if _, active := ui.CurrentResponse(); active {
					_ = ui.InterruptResponse()
				} else {
					b.WritePTY([]byte{0x03}, 2*time.Second)
				}
			}
		}
	}
}

func watchResize(b *ptyboundary.Boundary, sigCh <-chan os.Signal, reservedRows int) {
	for range sigCh {
		fd := int(os.Stdin.Fd())
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			continue
		}
		childRows := rows - reservedRows
		if childRows < 1 {
			childRows = rows
		}
		b.Mu.Lock()
		b.Resize(rows, cols, childRows)
		b.Mu.Unlock()
	}
}

func streamConfigFromYAML(s config.StreamingConfig) streamingui.Config {
	cfg := streamingui.DefaultConfig()
	if s.MaxResponseLength > 0 {
		cfg.MaxResponseLength = s.MaxResponseLength
	}
	if s.MemoryLimitMB > 0 {
		cfg.MemoryLimitMB = uint64(s.MemoryLimitMB)
	}
	if s.InterruptTimeoutMS > 0 {
		cfg.InterruptTimeout = time.Duration(s.InterruptTimeoutMS) * time.Millisecond
	}
	if s.ScrollBufferLines > 0 {
		cfg.ScrollBufferLines = s.ScrollBufferLines
	}
	cfg.TypingIndicatorEnabled = s.TypingIndicatorEnabled
	cfg.SyntaxHighlightingEnabled = s.SyntaxHighlightingEnabled
	cfg.ProgressiveRendering = s.ProgressiveRendering
	if s.BatchSize > 0 {
		cfg.BatchSize = s.BatchSize
	}
	if s.RenderIntervalMS > 0 {
		cfg.RenderInterval = time.Duration(s.RenderIntervalMS) * time.Millisecond
	}
	return cfg
}
