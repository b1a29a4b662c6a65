// Package report renders engine results for a terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/stockroom/internal/application"
	"github.com/bnema/stockroom/internal/credparse"
	"github.com/bnema/stockroom/internal/domain"
)

const barWidth = 24

func Daily(r domain.DailyReport) (string, error) {
	return run(func(s styles) string { return dailyView(r, s) })
}

func Finance(window domain.Window, purchases domain.PurchaseTotals) (string, error) {
	return run(func(s styles) string { return financeView(window, purchases, s) })
}

func Stock(counts []domain.TypeCount) (string, error) {
	return run(func(s styles) string { return stockView(counts, s) })
}

func Issued(resources []domain.Resource) (string, error) {
	return run(func(s styles) string { return issuedView(resources, s) })
}

func Ingest(result application.IngestResult) (string, error) {
	return run(func(s styles) string { return ingestView(result, s) })
}

func Managers(managers []domain.Manager) (string, error) {
	return run(func(s styles) string { return managersView(managers, s) })
}

func dailyView(r domain.DailyReport, s styles) string {
	lines := []string{
		s.title.Render("Daily report"),
		s.header.Render(fmt.Sprintf("%s .. %s", r.Window.From.Format("2006-01-02 15:04"), r.Window.To.Format("2006-01-02 15:04 MST"))),
	}

	totals := []string{
		row(s, "resources", fmt.Sprintf("%d", r.Totals.Total)),
		row(s, "free", fmt.Sprintf("%d", r.Totals.Free)),
		row(s, "issued", fmt.Sprintf("%d", r.Totals.Issued)),
		row(s, "closed", fmt.Sprintf("%d", r.Totals.Closed)),
		row(s, "issued today", fmt.Sprintf("%d", r.Totals.IssuedInWindow)),
		row(s, "closed today", fmt.Sprintf("%d", r.Totals.ClosedInWindow)),
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, totals...)))

	purchases := []string{
		row(s, "purchased", fmt.Sprintf("%d", r.Purchases.Count)),
		s.label.Render(pad("spent")) + s.money.Render(r.Purchases.Spent.StringFixed(2)),
		s.label.Render(pad("avg price")) + s.money.Render(r.Purchases.AveragePrice().StringFixed(2)),
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, purchases...)))

	lines = append(lines, s.section.Render(typeTable("issued by type", r.IssuedByType, s)))
	lines = append(lines, s.section.Render(typeTable("free by type", r.FreeByType, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func financeView(window domain.Window, p domain.PurchaseTotals, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Purchases"),
		s.header.Render(window.From.Format("2006-01-02")),
		row(s, "purchased", fmt.Sprintf("%d", p.Count)),
		s.label.Render(pad("spent"))+s.money.Render(p.Spent.StringFixed(2)),
		s.label.Render(pad("avg price"))+s.money.Render(p.AveragePrice().StringFixed(2)),
	)
}

func stockView(counts []domain.TypeCount, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left, s.title.Render("Free stock"), typeTable("", counts, s))
}

func typeTable(title string, counts []domain.TypeCount, s styles) string {
	lines := make([]string, 0, len(counts)+1)
	if title != "" {
		lines = append(lines, s.header.Render(title))
	}
	if len(counts) == 0 {
		lines = append(lines, s.empty.Render("none"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	peak := 0
	for _, c := range counts {
		if c.Count > peak {
			peak = c.Count
		}
	}
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			s.label.Render(pad(string(c.Type))),
			renderBar(c.Count, peak, s),
			s.value.Render(fmt.Sprintf("%d", c.Count)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func issuedView(resources []domain.Resource, s styles) string {
	lines := []string{
		s.title.Render("Issued to you"),
		s.header.Render(fmt.Sprintf("open: %d", len(resources))),
	}
	if len(resources) == 0 {
		lines = append(lines, s.empty.Render("Nothing issued."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, r := range resources {
		state := string(r.ReceiptState)
		if state == "" {
			state = string(domain.ReceiptNew)
		}
		issued := ""
		if r.IssueTime != nil {
			issued = r.IssueTime.Format("2006-01-02 15:04")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			s.value.Render(fmt.Sprintf("#%d", r.ID)),
			s.label.Render(string(r.Type)),
			credparse.Format(credparse.Credential{Login: r.Login, Password: r.Password, Proxy: r.Proxy}),
			s.header.Render(fmt.Sprintf("[%s, %s]", state, issued)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func ingestView(result application.IngestResult, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Uploaded %s", result.Type)),
		s.header.Render("batch " + result.BatchID),
		row(s, "parsed", fmt.Sprintf("%d", result.Parsed)),
		row(s, "added", fmt.Sprintf("%d", result.Inserted)),
		row(s, "duplicates", fmt.Sprintf("%d", result.Duplicates)),
		s.label.Render(pad("unit price")) + s.money.Render(result.Price.StringFixed(2)),
	}
	if result.Failed > 0 {
		lines = append(lines, s.warning.Render(fmt.Sprintf("%d row(s) failed", result.Failed)))
	}
	if result.Skipped > 0 {
		lines = append(lines, s.warning.Render(fmt.Sprintf("%d unreadable line(s) skipped", result.Skipped)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func managersView(managers []domain.Manager, s styles) string {
	lines := []string{s.title.Render("Managers")}
	if len(managers) == 0 {
		lines = append(lines, s.empty.Render("No managers registered."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	for _, m := range managers {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			s.value.Render(fmt.Sprintf("%d", m.ID)),
			s.label.Render(pad(string(m.Role))),
			m.Name,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func row(s styles, label string, value string) string {
	return s.label.Render(pad(label)) + s.value.Render(value)
}

func pad(label string) string {
	return fmt.Sprintf("%-14s", label)
}

func renderBar(count, peak int, s styles) string {
	filled := 0
	if peak > 0 {
		filled = count * barWidth / peak
	}
	if count > 0 && filled == 0 {
		filled = 1
	}

	return s.barBracket.Render("[") +
		s.barFill.Render(strings.Repeat("█", filled)) +
		s.barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		s.barBracket.Render("]")
}
