package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/settings"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	badStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("124")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width - 4
	if width < 60 {
		width = 60
	}
	sections := []string{headerStyle.Render("pipedeck | screenpipe recorder")}
	if m.banner != "" {
		sections = append(sections, bannerStyle.Render(m.banner))
	}
	sections = append(sections, boxStyle.Width(width).Render(m.renderStatus()))
	if m.showSettings {
		sections = append(sections, boxStyle.Width(width).Render(m.renderSettings()))
	}
	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	lines := []string{titleStyle.Render("Status")}
	switch {
	case !m.polled:
		lines = append(lines, dimStyle.Render("checking..."))
	case m.status == nil:
		lines = append(lines, "Recorder: "+badStyle.Render("unavailable"))
		if m.pollErr != nil {
			lines = append(lines, dimStyle.Render(m.pollErr.Error()))
		}
	default:
		st := m.status
		lines = append(lines,
			"Recorder: "+statusStyle(st.Status).Render(st.Status),
			"Message:  "+st.Message,
			"",
			fmt.Sprintf("Frames: %-12s last %s", st.FrameStatus, health.FormatTimestamp(st.LastFrameTimestamp)),
			fmt.Sprintf("Audio:  %-12s last %s", st.AudioStatus, health.FormatTimestamp(st.LastAudioTimestamp)),
			fmt.Sprintf("UI:     %-12s last %s", st.UIStatus, health.FormatTimestamp(st.LastUITimestamp)),
		)
		if !st.Healthy() && st.VerboseInstructions != nil && *st.VerboseInstructions != "" {
			lines = append(lines, "", warnStyle.Render(*st.VerboseInstructions))
		}
	}
	if m.installing {
		lines = append(lines, "", warnStyle.Render("installing recorder..."))
	}
	switch m.pending {
	case bridge.OpStart:
		lines = append(lines, "", warnStyle.Render("starting..."))
	case bridge.OpStop:
		lines = append(lines, "", warnStyle.Render("stopping..."))
	}
	if m.notice != "" && m.banner == "" {
		lines = append(lines, "", dimStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func statusStyle(s string) lipgloss.Style {
	switch s {
	case health.HealthyStatus:
		return okStyle
	case "unhealthy", "error":
		return badStyle
	}
	return warnStyle
}

func (m Model) renderSettings() string {
	lines := []string{titleStyle.Render("Recorder settings")}
	group := ""
	for i, o := range settings.Catalogue {
		if o.Group != group {
			group = o.Group
			lines = append(lines, dimStyle.Render("-- "+group))
		}
		marker := "  "
		label := o.Label
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
			label = cursorStyle.Render(label)
		}
		lines = append(lines, fmt.Sprintf("%s%-36s %s", marker, label, m.renderValue(i, o)))
	}
	flags := strings.Join(m.doc.Flags(), " ")
	if flags == "" {
		flags = "(none)"
	}
	lines = append(lines, "", dimStyle.Render("flags: "+flags))
	return strings.Join(lines, "\n")
}

func (m Model) renderValue(i int, o settings.Option) string {
	if m.editing && i == m.cursor {
		return m.input + cursorStyle.Render("_")
	}
	v := m.doc[o.Key]
	switch o.Kind {
	case settings.KindBool:
		if b, _ := v.(bool); b {
			return okStyle.Render("[x]")
		}
		return "[ ]"
	case settings.KindChoice:
		return "< " + settings.FormatValue(v) + " >"
	}
	s := settings.FormatValue(v)
	if s == "" {
		return dimStyle.Render("(default)")
	}
	return s
}

func (m Model) renderHelp() string {
	action := "s start"
	if m.status != nil && m.status.Healthy() {
		action = "s stop"
	}
	install := "i install"
	if m.installing {
		install = dimStyle.Render(install)
	}
	keys := []string{install, action, "r refresh", "d cli docs", "a api docs", "tab settings", "q leave", "Q quit host"}
	if m.showSettings {
		keys = append(keys, "↑/↓ select", "enter edit", "+/- adjust")
	}
	return dimStyle.Render(strings.Join(keys, " • "))
}
