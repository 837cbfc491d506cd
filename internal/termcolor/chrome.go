package termcolor

import "github.com/charmbracelet/lipgloss"

// Styles used by the CLI's preview chrome (the `render` subcommand's
// framed, titled preview of a grid snapshot before it's handed to the
// GPU renderer). Grounded on the same NewStyle/BorderStyle/Foreground
// composition used for panel chrome in ALH477-infgo's main.go.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7c3aed"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	frameStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)
)

// RenderPreviewFrame wraps body (already-rendered terminal content) in
// a titled, bordered preview frame sized to width columns.
func RenderPreviewFrame(title, subtitle, body string, width int) string {
	header := headerStyle.Render(title)
	if subtitle != "" {
		header += "  " + dimStyle.Render(subtitle)
	}
	return header + "\n" + frameStyle.Width(width).Render(body)
}
