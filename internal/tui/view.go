package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/poller"
)

// View 实现 tea.Model
func (m Model) View() string {
	var b strings.Builder

	width := max(m.width, 40)
	b.WriteString(styleHeader.Width(width).Render("Order " + m.orderID))
	b.WriteString("\n\n")

	b.WriteString("  " + m.renderHeadline())
	b.WriteString("\n\n")

	b.WriteString(styleDetailBox.Render(m.renderDetails()))
	b.WriteString("\n")

	b.WriteString(styleHelp.Render(m.renderHelp()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderHeadline() string {
	st := m.state
	switch {
	case st.Error != "":
		return styleError.Render(st.Error)
	case st.Paid():
		return lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("Payment confirmed. Your tickets are ready.")
	case st.Phase == poller.PhaseSettled:
		return StatusBadge(st.Status)
	case st.Loading:
		return m.spinner.View() + " Verifying payment status…"
	}
	return styleMuted.Render("Verification stopped.")
}

func (m Model) renderDetails() string {
	st := m.state
	rows := [][2]string{
		{"Status", StatusBadge(st.Status)},
		{"Phase", string(st.Phase)},
		{"Checks", fmt.Sprintf("%d", st.Fetches)},
	}
	if !m.startedAt.IsZero() {
		rows = append(rows, [2]string{"Elapsed", time.Since(m.startedAt).Truncate(time.Second).String()})
	}
	if m.restarts > 0 {
		rows = append(rows, [2]string{"Restarts", fmt.Sprintf("%d", m.restarts)})
	}
	rows = append(rows, orderRows(st.Details)...)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, styleLabel.Render(row[0])+styleValue.Render(row[1]))
	}
	return strings.Join(lines, "\n")
}

func orderRows(o *order.Order) [][2]string {
	if o == nil {
		return nil
	}
	var rows [][2]string
	if o.Event != nil {
		if o.Event.Title != "" {
			rows = append(rows, [2]string{"Event", o.Event.Title})
		}
		if o.Event.Venue != "" {
			rows = append(rows, [2]string{"Venue", o.Event.Venue})
		}
		if o.Event.StartDate != nil {
			rows = append(rows, [2]string{"Starts", o.Event.StartDate.Local().Format("Mon, 02 Jan 2006 15:04")})
		}
	}
	if o.Quantity > 0 {
		rows = append(rows, [2]string{"Tickets", fmt.Sprintf("%d", o.Quantity)})
	}
	if o.TotalAmount != "" {
		rows = append(rows, [2]string{"Total", strings.TrimSpace(o.TotalAmount.String() + " " + o.Currency)})
	}
	if o.CreatedAt != nil {
		rows = append(rows, [2]string{"Ordered", o.CreatedAt.Local().Format(time.DateTime)})
	}
	return rows
}

func (m Model) renderHelp() string {
	bindings := []key.Binding{m.keys.Restart, m.keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
