package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/ferroterm/ferroterm/internal/config"
	"github.com/ferroterm/ferroterm/internal/termcolor"
)

// terminalHints is the cached OSC 10/11 color response plus the
// COLORFGBG/TERM/COLORTERM environment hints a non-TTY invocation
// (the most common case once a child PTY has stolen the real
// terminal) can't observe directly.
type terminalHints struct {
	OscFg     string `json:"osc_fg,omitempty"`
	OscBg     string `json:"osc_bg,omitempty"`
	ColorFGBG string `json:"colorfgbg,omitempty"`
	Term      string `json:"term,omitempty"`
	ColorTerm string `json:"colorterm,omitempty"`
}

// detectTerminalHints captures the current terminal's colors for OSC
// 10/11 responses, a COLORFGBG hint for termcolor's fallback palette,
// and TERM/COLORTERM for capability detection.
func detectTerminalHints() terminalHints {
	var hints terminalHints

	overrideFg := os.Getenv("FERROTERM_OSC_FG")
	overrideBg := os.Getenv("FERROTERM_OSC_BG")
	overrideColorFGBG := os.Getenv("FERROTERM_COLORFGBG")

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output := termenv.NewOutput(os.Stdout)
		if fg := output.ForegroundColor(); fg != nil {
			hints.OscFg = termcolor.ToX11(fg)
		}
		if bg := output.BackgroundColor(); bg != nil {
			hints.OscBg = termcolor.ToX11(bg)
		}

		hints.ColorFGBG = os.Getenv("COLORFGBG")
		if hints.ColorFGBG == "" {
			if output.HasDarkBackground() {
				hints.ColorFGBG = "15;0"
			} else {
				hints.ColorFGBG = "0;15"
			}
		}

		hints.Term = os.Getenv("TERM")
		hints.ColorTerm = os.Getenv("COLORTERM")

		_ = persistTerminalHints(hints)
	} else if cached, ok := loadTerminalHints(); ok {
		hints = cached
	}

	if hints.ColorFGBG == "" {
		hints.ColorFGBG = os.Getenv("COLORFGBG")
	}

	if overrideFg != "" {
		hints.OscFg = overrideFg
	}
	if overrideBg != "" {
		hints.OscBg = overrideBg
	}
	if overrideColorFGBG != "" {
		hints.ColorFGBG = overrideColorFGBG
	}

	return hints
}

// refreshTerminalHintsCache updates the on-disk terminal color hints
// when this process has a TTY. Non-TTY invocations are a no-op.
func refreshTerminalHintsCache() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		detectTerminalHints()
	}
}

func terminalHintsPath() string {
	return filepath.Join(config.ConfigDir(), "terminal-colors.json")
}

func persistTerminalHints(h terminalHints) error {
	path := terminalHintsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func loadTerminalHints() (terminalHints, bool) {
	data, err := os.ReadFile(terminalHintsPath())
	if err != nil {
		return terminalHints{}, false
	}
	var h terminalHints
	if err := json.Unmarshal(data, &h); err != nil {
		return terminalHints{}, false
	}
	return h, true
}
