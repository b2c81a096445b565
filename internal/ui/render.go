package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/countdown/internal/countdown"
)

const title = "Countdown"

// renderBody renders the centred title and display text.
func (m Model) renderBody(styles Styles) string {
	var text string
	if m.snapshot.HasDisplay {
		d := m.snapshot.Display
		text = styles.DisplayStyle(d.Kind).Render(d.Text)
	} else {
		text = styles.FaintText.Render("Connecting to " + m.sourceLabel() + "...")
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		styles.Title.Render(title),
		"",
		text,
	)
}

// renderFooter renders the source, last update time and offline badge.
func (m Model) renderFooter(styles Styles) string {
	parts := []string{
		styles.MutedText.Render("source ") + styles.Text.Render(m.sourceLabel()),
	}

	updated := "never"
	if !m.snapshot.LastUpdated.IsZero() {
		updated = m.snapshot.LastUpdated.Format("15:04:05")
	}
	parts = append(parts, styles.MutedText.Render("updated ")+styles.Text.Render(updated))

	if m.snapshot.IsOffline() {
		parts = append(parts, styles.Offline.Render("OFFLINE"))
	}

	return styles.Footer.Render(strings.Join(parts, styles.FaintText.Render("  ·  ")))
}

func (m Model) sourceLabel() string {
	if m.sourceName == "" {
		return "source"
	}
	return m.sourceName
}

// RenderTile renders display as a bordered box for one-shot output. A
// positive width fixes the box width.
func RenderTile(display countdown.Display, themeName string, width int) string {
	styles := GetTheme(themeName).Styles()

	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.Title.Render(title),
		styles.DisplayStyle(display.Kind).Render(display.Text),
	)

	box := styles.Box.Align(lipgloss.Center)
	if width > 0 {
		// Width includes padding but not the border.
		box = box.Width(width - box.GetHorizontalBorderSize())
	}
	return box.Render(content)
}
