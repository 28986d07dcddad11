package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/newthinker/signalbot/internal/backtest"
)

const dateLayout = "2006-01-02"

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1).
		MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	buyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	sellStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	successStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// Render writes the terminal view of a report
func Render(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("📊 %s | %s | %s to %s",
		r.Symbol, r.Strategy, r.From.Format(dateLayout), r.To.Format(dateLayout))))
	b.WriteString("\n")

	if r.NoData {
		b.WriteString(sellStyle.Render(r.Message))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Last %d Signals", len(r.LastSignals))))
	b.WriteString("\n")
	if len(r.LastSignals) == 0 {
		b.WriteString(mutedStyle.Render("Not enough history to compute indicators."))
	} else {
		b.WriteString(signalTable(r.LastSignals))
	}
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Trade Log"))
	b.WriteString("\n")
	if len(r.TradeLog) == 0 {
		b.WriteString(mutedStyle.Render("No trades."))
		b.WriteString("\n")
	}
	for _, line := range r.TradeLog {
		style := buyStyle
		if strings.HasPrefix(line, "SELL") {
			style = sellStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if r.OpenPosition != nil {
		b.WriteString(mutedStyle.Render(openPositionLine(r.OpenPosition)))
		b.WriteString("\n")
	}

	for _, warning := range r.Warnings {
		b.WriteString(warnStyle.Render("⚠ " + warning))
		b.WriteString("\n")
	}

	b.WriteString(successStyle.Render(fmt.Sprintf("Final Wallet Balance: $%s", r.Wallet.StringFixed(2))))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func signalTable(rows []Row) string {
	data := make([][]string, len(rows))
	for i, row := range rows {
		data[i] = []string{
			row.Time.Format(dateLayout),
			fmt.Sprintf("%.2f", row.Close),
			fmt.Sprintf("%.2f", row.RSI),
			fmt.Sprintf("%.4f", row.MACD),
			fmt.Sprintf("%.2f", row.ShortMA),
			fmt.Sprintf("%.2f", row.LongMA),
			row.Signal,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("DATE", "CLOSE", "RSI", "MACD", "MA SHORT", "MA LONG", "SIGNAL").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return sectionStyle.Padding(0, 1)
			}
			if col == 6 && row >= 0 && row < len(data) {
				switch data[row][6] {
				case "BUY":
					return buyStyle.Padding(0, 1)
				case "SELL":
					return sellStyle.Padding(0, 1)
				}
			}
			return cellStyle
		})

	return t.Render()
}

func openPositionLine(p *backtest.Position) string {
	return fmt.Sprintf("Open position: bought at %s on %s (unrealized)",
		p.EntryPrice.StringFixed(2), p.EntryTime.Format(dateLayout))
}
