package main

import (
	"fmt"
	"strings"
	"time"

	"valuescout/models"
	"valuescout/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#DBDBDB", Dark: "#383838"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	priceStyle  = cellStyle.Copy().Foreground(colorGreen)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

const maxTitleWidth = 60

func renderComparison(result services.ComparisonResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Best prices for %q", result.Query)))
	b.WriteString("\n")

	if len(result.Top) == 0 {
		b.WriteString(dimStyle.Render("No relevant listings found"))
		return b.String()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("#", "SOURCE", "PRICE", "SCORE", "TITLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == 0:
				return headerStyle
			case col == 2:
				return priceStyle
			default:
				return cellStyle
			}
		})

	for i, c := range result.Top {
		t.Row(fmt.Sprint(i+1), c.Source, formatPrice(c.Price), fmt.Sprint(c.Score), truncate(c.Title, maxTitleWidth))
	}
	b.WriteString(t.Render())

	for _, c := range result.Top {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(c.Source + ": " + c.Link))
	}
	return b.String()
}

func renderSweep(run models.SweepRun) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("CHECKED", "PRICED", "BELOW TARGET", "ALERTS", "EMAILS", "FAILED", "SKIPPED", "TOOK").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return cellStyle
		}).
		Row(
			fmt.Sprint(run.Checked),
			fmt.Sprint(run.Resolved),
			fmt.Sprint(run.BelowTarget),
			fmt.Sprint(run.AlertsCreated),
			fmt.Sprint(run.EmailsSent),
			fmt.Sprint(run.EmailsFailed),
			fmt.Sprint(run.EmailsSkipped),
			run.Duration().Round(time.Millisecond).String(),
		)

	return titleStyle.Render(fmt.Sprintf("Sweep %s %s", run.ID, run.Status)) + "\n" + t.Render()
}

func formatPrice(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("₹%.2f", *p)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
