// Package termcolor answers the two color questions a terminal
// boundary needs that spec.md leaves to the host environment: what
// X11 rgb: string to hand back for an OSC 10/11 foreground/background
// query, and what color profile (ANSI / 256 / true color) the
// attached output stream actually supports.
//
// Grounded on teacher's internal/session/virtualterminal/util.go,
// which answers the same two questions the same way (termenv color
// conversion, COLORFGBG-derived fallback palette); this package is
// that logic pulled out from virtualterminal into its own home so
// internal/ptyboundary and the CLI preview chrome can both use it
// without depending on a PTY-owning package.
package termcolor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// ToX11 converts a termenv.Color to the X11 "rgb:RRRR/GGGG/BBBB"
// format OSC 10/11 responses use.
func ToX11(c termenv.Color) string {
	if c == nil {
		return ""
	}
	if rgb, ok := c.(termenv.RGBColor); ok {
		hex := string(rgb)
		if len(hex) == 7 && hex[0] == '#' {
			r, _ := strconv.ParseUint(hex[1:3], 16, 8)
			g, _ := strconv.ParseUint(hex[3:5], 16, 8)
			b, _ := strconv.ParseUint(hex[5:7], 16, 8)
			return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
		}
	}
	converted := termenv.ConvertToRGB(c)
	r := uint8(converted.R*255 + 0.5)
	g := uint8(converted.G*255 + 0.5)
	b := uint8(converted.B*255 + 0.5)
	return fmt.Sprintf("rgb:%04x/%04x/%04x", uint16(r)*0x101, uint16(g)*0x101, uint16(b)*0x101)
}

// FallbackPalette returns OSC 10/11-compatible X11 rgb values derived
// from a COLORFGBG-style string, for when the attached output stream
// has never told the boundary its real foreground/background. Falls
// back to a dark-terminal palette when colorfgbg can't be parsed.
func FallbackPalette(colorfgbg string) (fg, bg string) {
	parts := strings.Split(strings.TrimSpace(colorfgbg), ";")
	bgDark := true
	bgField := ""
	switch {
	case len(parts) >= 2:
		bgField = strings.TrimSpace(parts[1])
	case len(parts) == 1:
		bgField = strings.TrimSpace(parts[0])
	}
	if bgField != "" {
		if idx, err := strconv.Atoi(bgField); err == nil {
			bgDark = idx < 8 // xterm 16-color convention: 0-7 dark, 8-15 bright
		}
	}
	if bgDark {
		return "rgb:ffff/ffff/ffff", "rgb:0000/0000/0000"
	}
	return "rgb:0000/0000/0000", "rgb:ffff/ffff/ffff"
}

// EnvFallbackPalette is FallbackPalette applied to the process's own
// COLORFGBG environment variable, the common case for a boundary that
// hasn't cached a real OSC response yet.
func EnvFallbackPalette() (fg, bg string) {
	return FallbackPalette(os.Getenv("COLORFGBG"))
}

// Profile reports the color profile termenv detects for the process's
// stdout (ANSI, ANSI256, or TrueColor), the capability the CLI
// preview chrome and the PTY boundary both need before deciding how
// rich a rendering to attempt.
func Profile() termenv.Profile {
	return termenv.ColorProfile()
}
