package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/creamcroissant/orderwatch/internal/order"
)

var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#A78BFA")
	colorSuccess   = lipgloss.Color("#22C55E")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorDanger    = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleSpinner = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleDetailBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(14)

	styleValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// StatusBadge returns a colored payment status label.
func StatusBadge(status order.PaymentStatus) string {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case order.PaymentPaid:
		return style.Foreground(colorSuccess).Render("● PAID")
	case order.PaymentFailed, order.PaymentCancelled:
		return style.Foreground(colorDanger).Render("○ " + status.String())
	case order.PaymentRefunded:
		return style.Foreground(colorWarning).Render("◐ REFUNDED")
	case order.PaymentPending:
		return style.Foreground(colorSecondary).Render("◌ PENDING")
	case "":
		return styleMuted.Render("…")
	default:
		return styleMuted.Render("? " + status.String())
	}
}
