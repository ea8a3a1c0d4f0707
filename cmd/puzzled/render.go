package main

import (
	"strconv"
	"strings"

	"puzzled/internal/assembly"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent      = lipgloss.Color("#8BC34A") // Lime Green
	destructive = lipgloss.Color("#e53935") // Red
	muted       = lipgloss.Color("#6b7b93")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	headStyle  = cellStyle.Foreground(muted)
	badStyle   = cellStyle.Foreground(destructive).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(destructive).Bold(true)
)

// renderGrid draws a layout, highlighting fragments placed more than once.
func renderGrid(title string, grid [][]int, repeated []int) string {
	dup := make(map[string]bool, len(repeated))
	for _, id := range repeated {
		dup[strconv.Itoa(id)] = true
	}

	cols := 0
	rows := make([][]string, 0, len(grid))
	for r, ids := range grid {
		row := []string{strconv.Itoa(r)}
		for _, id := range ids {
			row = append(row, strconv.Itoa(id))
		}
		if len(ids) > cols {
			cols = len(ids)
		}
		rows = append(rows, row)
	}
	headers := []string{""}
	for c := 0; c < cols; c++ {
		headers = append(headers, strconv.Itoa(c))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headStyle
			}
			if row >= 0 && row < len(rows) && col < len(rows[row]) && dup[rows[row][col]] {
				return badStyle
			}
			return cellStyle
		})

	return titleStyle.Render(title) + "\n" + t.Render()
}

func renderReport(r assembly.Report) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Rows(reportRows(r)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return titleStyle.Render("Seam report") + "\n" + t.Render()
}

func renderVerdict(solved bool) string {
	var sb strings.Builder
	if solved {
		sb.WriteString(okStyle.Render("solved: layout matches the source image"))
	} else {
		sb.WriteString(failStyle.Render("unsolved: layout differs from the source image"))
	}
	return sb.String()
}
