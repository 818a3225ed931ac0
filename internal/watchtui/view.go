package watchtui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/localfirst/tripledb/internal/output"
	"github.com/localfirst/tripledb/internal/query"
)

func (m Model) renderView() string {
	if m.Width == 0 {
		return "loading...\n"
	}

	var body strings.Builder
	body.WriteString(panelTitleStyle.Render(fmt.Sprintf(" watch: %s ", queryLabel(m.Query))))
	body.WriteString("\n\n")

	if m.UpdatedAt.IsZero() {
		body.WriteString(subtleStyle.Render("waiting for first result...") + "\n")
	} else {
		body.WriteString(fmt.Sprintf("state: %s   updated: %s\n\n",
			formatState(string(m.Last.State)), output.FormatTimeAgo(m.UpdatedAt)))

		switch m.Last.State {
		case "error":
			body.WriteString(subtleStyle.Render(errString(m.Last.Err)) + "\n")
		default:
			body.WriteString(renderRows(m))
		}
	}

	body.WriteString("\n")
	if m.ShowHelp {
		body.WriteString(helpStyle.Render("j/k scroll   ?  toggle help   q  quit") + "\n")
	} else {
		body.WriteString(helpStyle.Render("? for help, q to quit") + "\n")
	}

	return panelStyle.Width(m.Width - 2).Render(body.String())
}

func renderRows(m Model) string {
	if len(m.Last.Aggregates) > 0 {
		var sb strings.Builder
		for _, row := range m.Last.Aggregates {
			sb.WriteString(fmt.Sprintf("%v  %v\n", row.Group, row.Values))
		}
		return sb.String()
	}

	entities := m.Last.Entities
	if len(entities) == 0 {
		return subtleStyle.Render("(no matching entities)") + "\n"
	}

	start := m.ScrollOffset
	if start > len(entities) {
		start = len(entities)
	}
	end := len(entities)

	rowWidth := m.Width - 4
	var sb strings.Builder
	for _, e := range entities[start:end] {
		row := output.FormatEntityShort(e)
		if rowWidth > 0 {
			row = ansi.Truncate(row, rowWidth, "…")
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func queryLabel(q query.Query) string {
	switch {
	case q.EntityID != "":
		return q.EntityID
	case q.EntityType != "":
		return q.EntityType
	default:
		return "all entities"
	}
}
