// Package console renders the human-facing output of the pkgmcp commands.
//
// Styles are plain Lip Gloss styles with hex colors. When the writer is not a
// terminal Lip Gloss drops the escape codes, so piped output stays readable.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fd7ff"))

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffd75f"))

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5f87ff"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaf00")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	// Code blocks such as example client configuration.
	CodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd7ff")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f5fff")).
			Padding(0, 1)
)

const ruleWidth = 60

// Printer writes styled lines to w.
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

// New returns a printer for w. Colors follow w's terminal capabilities.
func New(w io.Writer) *Printer {
	return &Printer{w: w, renderer: lipgloss.NewRenderer(w)}
}

// NewWithProfile returns a printer for w that renders with profile whatever
// w is. termenv.Ascii turns colors off.
func NewWithProfile(w io.Writer, profile termenv.Profile) *Printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Printer{w: w, renderer: r}
}

func (p *Printer) style(s lipgloss.Style) lipgloss.Style {
	return s.Renderer(p.renderer)
}

// Header prints a boxed title.
func (p *Printer) Header(title string) {
	rule := strings.Repeat("=", ruleWidth)
	st := p.style(HeaderStyle)
	fmt.Fprintf(p.w, "\n%s\n%s\n%s\n\n", st.Render(rule), st.Render("  "+title), st.Render(rule))
}

// Section prints an underlined section title.
func (p *Printer) Section(title string) {
	st := p.style(SectionStyle)
	fmt.Fprintf(p.w, "\n%s\n%s\n", st.Render(title), st.Render(strings.Repeat("-", len(title))))
}

// Info prints "label: value", indented.
func (p *Printer) Info(label, value string) {
	if label == "" {
		fmt.Fprintf(p.w, "  %s\n", value)
		return
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.style(LabelStyle).Render(label+":"), value)
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(SuccessStyle).Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(WarningStyle).Render("! "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(ErrorStyle).Render("✗ "+fmt.Sprintf(format, args...)))
}

// Code prints a bordered block of preformatted text.
func (p *Printer) Code(text string) {
	fmt.Fprintln(p.w, p.style(CodeStyle).Render(text))
}

// Redact masks a secret for display, keeping nothing of it.
func Redact(secret string) string {
	if secret == "" {
		return "Not set"
	}
	return "***REDACTED***"
}
