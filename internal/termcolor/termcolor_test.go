package termcolor

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestToX11_ConvertsHexRGBColor(t *testing.T) {
	got := ToX11(termenv.RGBColor("#ff0000"))
	want := "rgb:ffff/0000/0000"
	if got != want {
		t.Fatalf("ToX11 = %q, want %q", got, want)
	}
}

func TestToX11_NilColorReturnsEmpty(t *testing.T) {
	if got := ToX11(nil); got != "" {
		t.Fatalf("ToX11(nil) = %q, want empty", got)
	}
}

func TestFallbackPalette_DarkBackgroundFromColorFGBG(t *testing.T) {
	fg, bg := FallbackPalette("15;0")
	if fg != "rgb:ffff/ffff/ffff" || bg != "rgb:0000/0000/0000" {
		t.Fatalf("fg=%q bg=%q, want white-on-black for a dark background", fg, bg)
	}
}

func TestFallbackPalette_LightBackgroundFromColorFGBG(t *testing.T) {
	fg, bg := FallbackPalette("0;15")
	if fg != "rgb:0000/0000/0000" || bg != "rgb:ffff/ffff/ffff" {
		t.Fatalf("fg=%q bg=%q, want black-on-white for a light background", fg, bg)
	}
}

func TestFallbackPalette_UnparseableDefaultsToDark(t *testing.T) {
	fg, bg := FallbackPalette("not-a-number")
	if fg != "rgb:ffff/ffff/ffff" || bg != "rgb:0000/0000/0000" {
		t.Fatalf("fg=%q bg=%q, want dark-terminal default", fg, bg)
	}
}

func TestRenderPreviewFrame_IncludesTitleAndBody(t *testing.T) {
	out := RenderPreviewFrame("preview", "80x24", "hello", 40)
	if !strings.Contains(out, "preview") || !strings.Contains(out, "hello") {
		t.Fatalf("output missing title/body: %q", out)
	}
}
