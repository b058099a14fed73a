// Package ui is the terminal presentation layer shared by the CLI
// commands: status lines, defect lists, tables, spinners and markdown
// rendering. Plan output has its own renderer in internal/plan; this
// package covers everything around it.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	fcolor "github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	accentColor  = lipgloss.Color("14")
	successColor = lipgloss.Color("10")
	warnColor    = lipgloss.Color("11")
	errorColor   = lipgloss.Color("9")
	mutedColor   = lipgloss.Color("8")

	titleStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

// plain is set by Disable; every printer falls back to unstyled text.
var plain bool

// fatih/color detects NO_COLOR, dumb terminals and redirected output at
// startup; inherit its verdict so every printer here agrees with it.
func init() {
	if fcolor.NoColor {
		Disable()
	}
}

// Disable switches all output to uncolored text. Wired to --no-color and
// to non-tty detection at startup.
func Disable() {
	plain = true
	pterm.DisableColor()
	fcolor.NoColor = true
}

// Enabled reports whether styled output is still on.
func Enabled() bool {
	return !plain
}

func render(style lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return style.Render(text)
}

// Header prints a titled banner for long-running commands.
func Header(title, subtitle string) {
	if plain {
		fmt.Printf("%s\n%s\n\n", title, subtitle)
		return
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 2).
		Render(titleStyle.Render(title) + "\n" + mutedStyle.Render(subtitle))
	fmt.Println(box)
}

// Success prints a confirmation line to stdout.
func Success(format string, args ...interface{}) {
	fmt.Println(render(successStyle, "✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a warning line to stdout.
func Warn(format string, args ...interface{}) {
	fmt.Println(render(warnStyle, "⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints an error line to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, render(errorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

// Info prints a secondary status line to stdout.
func Info(format string, args ...interface{}) {
	fmt.Println(render(mutedStyle, fmt.Sprintf(format, args...)))
}

// Defects renders validation defects as a bulleted list.
func Defects(defects []string) {
	items := make([]pterm.BulletListItem, 0, len(defects))
	for _, d := range defects {
		items = append(items, pterm.BulletListItem{
			Level:       0,
			Text:        d,
			Bullet:      "✗",
			BulletStyle: pterm.NewStyle(pterm.FgRed),
		})
	}
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

// Table renders a header row plus data rows.
func Table(headers []string, rows [][]string) {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Spinner starts a spinner with the given message. It renders to stderr
// so piped stdout stays clean. The caller stops it with Success or Fail.
func Spinner(message string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.WithWriter(os.Stderr).WithText(message).Start()
}

// Markdown renders markdown to the terminal. With colors disabled the
// raw text is printed unchanged.
func Markdown(content string) error {
	if plain {
		fmt.Print(content)
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
