// Package color renders plan output markers in Terraform's palette: green
// for additions, yellow for modifications, red for drops. Detection of
// NO_COLOR, dumb terminals and non-tty output is delegated to fatih/color,
// so a disabled or redirected stream always gets plain text.
package color

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
	add     *color.Color
	change  *color.Color
	destroy *color.Color
	bold    *color.Color
	cyan    *color.Color
	blue    *color.Color
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{
		enabled: enabled,
		add:     color.New(color.FgGreen),
		change:  color.New(color.FgYellow),
		destroy: color.New(color.FgRed),
		bold:    color.New(color.Bold),
		cyan:    color.New(color.FgCyan),
		blue:    color.New(color.FgBlue),
	}
}

func (c *Color) paint(p *color.Color, text string) string {
	if !c.enabled {
		return text
	}
	return p.Sprint(text)
}

// Add colors a string to indicate additions (green, like Terraform)
func (c *Color) Add(text string) string {
	return c.paint(c.add, text)
}

// Change colors a string to indicate modifications (yellow, like Terraform)
func (c *Color) Change(text string) string {
	return c.paint(c.change, text)
}

// Destroy colors a string to indicate deletions (red, like Terraform)
func (c *Color) Destroy(text string) string {
	return c.paint(c.destroy, text)
}

// Bold makes text bold
func (c *Color) Bold(text string) string {
	return c.paint(c.bold, text)
}

// Cyan colors text cyan (for headers and labels)
func (c *Color) Cyan(text string) string {
	return c.paint(c.cyan, text)
}

// Blue colors text blue
func (c *Color) Blue(text string) string {
	return c.paint(c.blue, text)
}

// Risk colors a risk tier: low green, medium yellow, high red.
func (c *Color) Risk(tier string) string {
	switch tier {
	case "low":
		return c.Add(tier)
	case "medium":
		return c.Change(tier)
	case "high":
		return c.Destroy(tier)
	default:
		return tier
	}
}

// PlanSymbol returns the appropriate symbol for plan actions
func (c *Color) PlanSymbol(action string) string {
	switch action {
	case "add", "create":
		return c.Add("+")
	case "change", "modify", "update":
		return c.Change("~")
	case "destroy", "drop", "delete":
		return c.Destroy("-")
	default:
		return " "
	}
}

// FormatPlanLine formats a line in Terraform plan style
func (c *Color) FormatPlanLine(symbol, objectType, name, action string) string {
	coloredSymbol := c.PlanSymbol(action)
	if name == "" {
		return fmt.Sprintf("  %s %s", coloredSymbol, objectType)
	}
	return fmt.Sprintf("  %s %s.%s", coloredSymbol, objectType, name)
}

// FormatSummaryLine formats summary counts with colors
func (c *Color) FormatSummaryLine(objectType string, added, modified, dropped int) string {
	// Always show all three categories, even if zero
	parts := []string{
		c.Add(fmt.Sprintf("%d to add", added)),
		c.Change(fmt.Sprintf("%d to modify", modified)),
		c.Destroy(fmt.Sprintf("%d to drop", dropped)),
	}

	return fmt.Sprintf("  %s: %s", objectType, strings.Join(parts, ", "))
}

// FormatPlanHeader formats the main plan header
func (c *Color) FormatPlanHeader(added, modified, dropped int) string {
	// Always show all three categories, even if zero
	parts := []string{
		c.Add(fmt.Sprintf("%d to add", added)),
		c.Change(fmt.Sprintf("%d to modify", modified)),
		c.Destroy(fmt.Sprintf("%d to drop", dropped)),
	}

	return fmt.Sprintf("Plan: %s.", strings.Join(parts, ", "))
}
