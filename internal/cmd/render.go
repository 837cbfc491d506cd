package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferroterm/ferroterm/internal/scrollbuf"
	"github.com/ferroterm/ferroterm/internal/termcolor"
)

// statusLineRenderer is the Streaming UI's Renderer for `run`: a
// single reserved terminal row showing the most recent rendered line
// plus a typing indicator, printed with \r to overwrite in place. The
// GPU shader backend is the actual grid-to-pixels renderer for
// everything else (out of scope here); this is only the one row the
// Streaming UI owns directly.
type statusLineRenderer struct {
	width int
}

func newStatusLineRenderer(width int) *statusLineRenderer {
	return &statusLineRenderer{width: width}
}

func (r *statusLineRenderer) RenderFrame(lines []scrollbuf.Line, typingIndicatorActive bool) {
	text := ""
	if len(lines) > 0 {
		text = lines[len(lines)-1].Raw
	}
	if typingIndicatorActive {
		text += " …"
	}
	if len(text) > r.width && r.width > 0 {
		text = text[:r.width]
	}
	fmt.Printf("\r\x1b[K%s", text)
}

// newRenderCmd previews the chrome termcolor.RenderPreviewFrame draws
// around a Streaming UI response, without spawning a child PTY or a
// Model Host. Useful for checking a terminal's color hints render
// sensibly before running it for real.
func newRenderCmd() *cobra.Command {
	var title, body string
	var width int

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Preview the response chrome for the current terminal's color hints",
		RunE: func(cmd *cobra.Command, args []string) error {
			hints := detectTerminalHints()
			subtitle := strings.TrimSpace(fmt.Sprintf("fg=%s bg=%s term=%s", hints.OscFg, hints.OscBg, hints.Term))
			frame := termcolor.RenderPreviewFrame(title, subtitle, body, width)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), frame)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "ferroterm", "preview title")
	cmd.Flags().StringVar(&body, "body", "agent response preview", "preview body text")
	cmd.Flags().IntVar(&width, "width", 80, "preview width in columns")
	return cmd
}
