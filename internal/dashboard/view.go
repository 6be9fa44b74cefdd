package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/agusx1211/loopdash/internal/hexid"
	"github.com/agusx1211/loopdash/internal/story"
	"github.com/agusx1211/loopdash/internal/theme"
	"github.com/agusx1211/loopdash/internal/trace"
)

// --- View rendering ---

func (m Model) View() string {
	if m.width == 0 || m.height < 3 {
		return "Loading..."
	}

	panelHeight := m.height - 2
	if panelHeight < 1 {
		panelHeight = 1
	}

	header := m.renderHeader()
	statusBar := m.renderStatusBar()

	var panels string
	traceOuterW := m.width - boardPanelOuterWidth
	if traceOuterW >= 30 {
		left := m.renderBoardPanel(boardPanelOuterWidth, panelHeight)
		right := m.renderTracePanel(traceOuterW, panelHeight)
		panels = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		// Narrow terminal: stack both panes.
		top := panelHeight / 2
		panels = lipgloss.JoinVertical(lipgloss.Left,
			m.renderBoardPanel(m.width, top),
			m.renderTracePanel(m.width, panelHeight-top),
		)
	}

	return header + "\n" + panels + "\n" + statusBar
}

func (m Model) renderHeader() string {
	title := fmt.Sprintf(" loopdash — %s ", m.projectName)
	if m.agentID != "" {
		title = fmt.Sprintf(" loopdash — %s — agent %s ", m.projectName, m.agentID)
	}
	return headerStyle.
		Width(m.width).
		MaxWidth(m.width).
		Render(title)
}

func (m Model) renderStatusBar() string {
	parts := []string{
		shortcut("q", "quit"),
		shortcut("r", "refresh"),
		shortcut("c", "clear"),
		shortcut("j/k", "scroll"),
	}
	if m.hasState {
		parts = append(parts, statusValueStyle.Render("updated "+formatAgo(m.now(), m.state.At)))
	} else {
		parts = append(parts, statusValueStyle.Render("waiting for first poll"))
	}
	if m.notice != "" {
		parts = append(parts, statusValueStyle.Render(m.notice))
	}
	if m.state.BoardErr != nil {
		parts = append(parts, statusErrStyle.Render("stories: "+m.state.BoardErr.Error()))
	}
	if m.state.TraceErr != nil {
		parts = append(parts, statusErrStyle.Render("trace: "+m.state.TraceErr.Error()))
	}

	bar := strings.Join(parts, statusValueStyle.Render("  "))
	return statusBarStyle.
		Width(m.width).
		MaxWidth(m.width).
		Render(bar)
}

func shortcut(k, desc string) string {
	return statusKeyStyle.Render(k) + statusValueStyle.Render(" "+desc)
}

func (m Model) renderBoardPanel(outerW, outerH int) string {
	hf, vf := boardPanelStyle.GetFrameSize()
	cw := max(outerW-hf, 1)
	ch := max(outerH-vf, 1)

	lines := boardLines(m.state.Board, cw)
	if !m.hasState {
		lines = []string{sectionTitleStyle.Render("Stories"), dimStyle.Render("loading...")}
	}

	start := m.boardScroll
	if maxStart := len(lines) - ch; start > maxStart {
		start = max(maxStart, 0)
	}
	return boardPanelStyle.Render(fitToSize(lines[start:], cw, ch))
}

// boardLines renders the layered story list.
func boardLines(res story.Result, width int) []string {
	var lines []string
	lines = append(lines, sectionTitleStyle.Render("Stories"))

	counts := res.Counts()
	var tally []string
	for _, st := range story.AllStatuses() {
		tally = append(tally, lipgloss.NewStyle().Foreground(theme.StoryColor(st)).Render(fmt.Sprintf("%d %s", counts[st], st)))
	}
	lines = append(lines, strings.Join(tally, dimStyle.Render(" · ")))

	if len(res.Cycle) > 0 {
		lines = append(lines, warnStyle.Render(ansi.Truncate("⚠ cycle: "+res.Cycle.String(), width, "…")))
	}
	if len(res.Layers) == 0 {
		lines = append(lines, "", dimStyle.Render("no stories"))
		return lines
	}

	for _, layer := range res.Layers {
		lines = append(lines, "")
		title := fmt.Sprintf("Layer %d", layer.Index+1)
		if layer.Overflow {
			title = "Unordered (cycle)"
		}
		lines = append(lines, layerTitleStyle.Render(title))
		for _, it := range layer.Items {
			st := res.Statuses[it.ID]
			row := theme.StoryBadge(st) + " " + valueStyle.Render(it.ID)
			if it.Title != "" {
				row += " " + dimStyle.Render(it.Title)
			}
			lines = append(lines, ansi.Truncate(row, width, "…"))
		}
	}
	return lines
}

func (m Model) renderTracePanel(outerW, outerH int) string {
	hf, vf := tracePanelStyle.GetFrameSize()
	cw := max(outerW-hf, 1)
	ch := max(outerH-vf, 1)

	var lines []string
	switch {
	case m.agentID == "":
		lines = []string{
			sectionTitleStyle.Render("Subagents"),
			dimStyle.Render("no agent selected (pass --agent)"),
		}
	case !m.hasState:
		lines = []string{
			sectionTitleStyle.Render("Subagents · " + m.agentID),
			dimStyle.Render("loading..."),
		}
	default:
		lines = traceLines(m.state, m.now(), cw)
	}
	return tracePanelStyle.Render(fitToSize(lines, cw, ch))
}

// traceLines renders the subagent forest with aggregate counts.
func traceLines(st State, now time.Time, width int) []string {
	snap := st.Trace.Snapshot
	lines := []string{sectionTitleStyle.Render("Subagents · " + st.Trace.AgentID)}

	counts := fmt.Sprintf("active %d · total %d · %s %d %s %d",
		snap.ActiveCount, snap.TotalCount,
		theme.TraceIcon(trace.StatusCompleted), snap.Outcomes.Completed,
		theme.TraceIcon(trace.StatusFailed), snap.Outcomes.Failed)
	lines = append(lines, valueStyle.Render(counts))
	if sum := st.Trace.Summary; sum.Finished() > 0 || len(st.Trace.Active) > 0 {
		backend := fmt.Sprintf("backend: %d active · %d completed · %d failed",
			len(st.Trace.Active), sum.Completed, sum.Failed)
		lines = append(lines, dimStyle.Render(backend))
	}
	lines = append(lines, "")

	if len(snap.Roots) == 0 {
		lines = append(lines, dimStyle.Render("no subagents yet"))
		return lines
	}

	snap.Walk(func(n *trace.Node, level int) {
		id := hexid.Short(n.ID, 8)
		if n.Highlighted {
			id = theme.Highlight.Render(id)
		} else {
			id = valueStyle.Render(id)
		}
		row := hierarchyPrefix(level) + theme.TraceIndicator(n.Status) + " " + id
		if n.Description != "" {
			row += " " + dimStyle.Render(compactWhitespace(n.Description))
		}
		row += " " + dimStyle.Render(formatDuration(n.Elapsed(now)))
		if n.Status == trace.StatusFailed && n.Error != "" {
			row += " " + errTextStyle.Render(compactWhitespace(n.Error))
		}
		lines = append(lines, ansi.Truncate(row, width, "…"))
	})
	return lines
}

func hierarchyPrefix(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("|  ", depth-1) + "+- "
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatAgo(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "just now"
	}
	return d.Round(time.Second).String() + " ago"
}

func fitToSize(lines []string, w, h int) string {
	emptyLine := strings.Repeat(" ", w)
	result := make([]string, h)

	for i := 0; i < h; i++ {
		if i < len(lines) {
			line := lines[i]
			if idx := strings.IndexByte(line, '\n'); idx >= 0 {
				line = line[:idx]
			}
			line = ansi.Truncate(line, w, "")
			if pad := w - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			result[i] = line
		} else {
			result[i] = emptyLine
		}
	}
	return strings.Join(result, "\n")
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
