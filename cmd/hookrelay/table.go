package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("#00FF00"))
	failedStyle = cellStyle.Foreground(lipgloss.Color("#FF0000"))
	queuedStyle = cellStyle.Foreground(lipgloss.Color("#888888"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))
)

const statusColumn = 1

// eventRow is the subset of an event record shown in the table.
type eventRow struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Attempts       int    `json:"attempts"`
	ResponseStatus *int   `json:"response_status"`
	CreatedAt      string `json:"created_at"`
	SourceID       string `json:"source_id"`
}

func renderEventsTable(models []json.RawMessage) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		var ev eventRow
		if err := json.Unmarshal(m, &ev); err != nil {
			rows = append(rows, []string{"?", "UNPARSEABLE", "", "", ""})
			continue
		}
		response := "-"
		if ev.ResponseStatus != nil {
			response = fmt.Sprint(*ev.ResponseStatus)
		}
		rows = append(rows, []string{ev.ID, ev.Status, fmt.Sprint(ev.Attempts), response, ev.CreatedAt})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "STATUS", "ATTEMPTS", "RESPONSE", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(rows) {
				return statusStyle(rows[row][statusColumn])
			}
			return cellStyle
		}).
		String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "SUCCESSFUL":
		return okStyle
	case "FAILED", "UNPARSEABLE":
		return failedStyle
	case "QUEUED", "SCHEDULED", "HOLD":
		return queuedStyle
	default:
		return cellStyle
	}
}
