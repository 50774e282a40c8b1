package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// =============================================================================
// Palette & Styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle renders batch headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight renders blend labels and the browser cursor.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue renders paths and values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber renders magnitudes and counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning renders warnings and load errors.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSep     = " · "
)

// =============================================================================
// Console
// =============================================================================

// console writes styled status lines for a command, usually to
// cmd.OutOrStdout().
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) *console {
	return &console{w: w}
}

func (c *console) line(s string) {
	fmt.Fprintln(c.w, s)
}

func (c *console) success(format string, args ...any) {
	c.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (c *console) fail(format string, args ...any) {
	c.line(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (c *console) warning(format string, args ...any) {
	c.line(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *console) info(format string, args ...any) {
	c.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented secondary line.
func (c *console) detail(format string, args ...any) {
	c.line("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints a written output path.
func (c *console) file(path string) {
	c.line("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func (c *console) keyValue(key, value string) {
	c.line(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// stats prints a run summary line such as
// "8 blends · 17 objects · 2 skipped · 41ms · 1 cached".
func (c *console) stats(stats pipeline.Stats, skipped int64) {
	parts := []string{
		formatCount(stats.Blends, "blend"),
		formatCount(stats.Objects, "object"),
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	parts = append(parts, stats.Duration.Round(time.Millisecond).String())

	rendered := make([]string, len(parts), len(parts)+1)
	for i, p := range parts {
		rendered[i] = StyleDim.Render(p)
	}
	if stats.CacheHits > 0 {
		rendered = append(rendered, styleCached.Render(fmt.Sprintf("%d cached", stats.CacheHits)))
	} else {
		rendered = append(rendered, styleComputed.Render("fresh"))
	}
	c.line("  " + strings.Join(rendered, StyleDim.Render(iconSep)))
}

// nextStep prints a suggested follow-up command.
func (c *console) nextStep(description, cmd string) {
	c.line(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Formatting
// =============================================================================

// formatCount pluralizes noun by n: "1 blend", "3 blends", "2 batches".
func formatCount[T ~int | ~int64](n T, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	plural := noun + "s"
	if strings.HasSuffix(noun, "ch") || strings.HasSuffix(noun, "s") {
		plural = noun + "es"
	}
	return strconv.FormatInt(int64(n), 10) + " " + plural
}

// formatRate renders a blends-per-second throughput.
func formatRate(perSecond float64) string {
	return strconv.FormatFloat(perSecond, 'f', 1, 64) + " blends/s"
}
