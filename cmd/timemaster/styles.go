package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/timemaster/pkg/prefs"
	"github.com/BYTE-6D65/timemaster/pkg/render"
)

type palette struct {
	fg       lipgloss.Color
	bg       lipgloss.Color
	accent   lipgloss.Color
	muted    lipgloss.Color
	disabled lipgloss.Color
	flash    lipgloss.Color
}

var palettes = map[string]palette{
	prefs.ThemeLight: {
		fg:       lipgloss.Color("#1F2335"),
		bg:       lipgloss.Color("#F4F4F8"),
		accent:   lipgloss.Color("#7D56F4"),
		muted:    lipgloss.Color("#626262"),
		disabled: lipgloss.Color("#B8B8C0"),
		flash:    lipgloss.Color("#FFB800"),
	},
	prefs.ThemeDark: {
		fg:       lipgloss.Color("#E6E6F0"),
		bg:       lipgloss.Color("#1A1B26"),
		accent:   lipgloss.Color("#BB9AF7"),
		muted:    lipgloss.Color("#8A8FA8"),
		disabled: lipgloss.Color("#44475A"),
		flash:    lipgloss.Color("#FFB800"),
	},
}

// styles are rebuilt whenever the theme changes.
type styles struct {
	title      lipgloss.Style
	tab        lipgloss.Style
	activeTab  lipgloss.Style
	panel      lipgloss.Style
	flashPanel lipgloss.Style
	display    lipgloss.Style
	button     lipgloss.Style
	buttonOff  lipgloss.Style
	muted      lipgloss.Style
	status     lipgloss.Style
	face       map[render.Kind]lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[prefs.ThemeLight]
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Foreground(p.fg).
		Padding(1, 2)

	plain := lipgloss.NewStyle().Foreground(p.fg)
	accent := lipgloss.NewStyle().Foreground(p.accent)

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			PaddingLeft(2),

		tab: lipgloss.NewStyle().
			Foreground(p.muted).
			Padding(0, 2),

		activeTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.bg).
			Background(p.accent).
			Padding(0, 2),

		panel: panel,

		flashPanel: panel.
			BorderForeground(p.flash).
			Foreground(p.flash),

		display: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.fg).
			PaddingBottom(1),

		button: lipgloss.NewStyle().
			Foreground(p.accent).
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),

		buttonOff: lipgloss.NewStyle().
			Foreground(p.disabled).
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.disabled).
			Padding(0, 1),

		muted: lipgloss.NewStyle().Foreground(p.muted),

		status: lipgloss.NewStyle().
			Foreground(p.flash).
			PaddingLeft(2),

		face: map[render.Kind]lipgloss.Style{
			render.KindFace:       lipgloss.NewStyle().Foreground(p.muted),
			render.KindTickMinor:  lipgloss.NewStyle().Foreground(p.muted),
			render.KindTickMajor:  plain,
			render.KindNumeral:    plain.Bold(true),
			render.KindHourHand:   plain,
			render.KindMinuteHand: plain,
			render.KindSecondHand: accent,
			render.KindCenter:     accent,
			render.KindDigital:    plain.Bold(true),
		},
	}
}
