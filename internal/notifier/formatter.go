package notifier

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"GEMSentinel/internal/model"
	"GEMSentinel/internal/strategy"

	"github.com/shopspring/decimal"
)

// FormatTelegramReport formats a run into an HTML Telegram message.
// ev may be nil when the run failed before any instrument was evaluated.
func FormatTelegramReport(asOf time.Time, ev *strategy.Evaluation, runErr error) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>GEM Strategy (12-1)</b> | %s\n", asOf.Format("2006-01-02")))
	if ev != nil {
		b.WriteString(fmt.Sprintf("📅 Window: <b>%s</b> to <b>%s</b>\n", ev.Window.Start.Format("2006-01-02"), ev.Window.End.Format("2006-01-02")))
	}
	b.WriteString("\n")

	if ev != nil && len(ev.Ranked) > 0 {
		b.WriteString("📊 <b>Ranking:</b>\n")
		for i, r := range ev.Ranked {
			b.WriteString(fmt.Sprintf("  %d. %s: %s → %s (%s%%)\n",
				i+1, html.EscapeString(r.Instrument.Name),
				r.DisplayStartPrice().StringFixed(2), r.DisplayEndPrice().StringFixed(2),
				signed(r.DisplayReturnPct())))
		}
		b.WriteString("\n")
	}

	if ev != nil && ev.Signal != nil {
		leader := ev.Signal.Leader
		b.WriteString(fmt.Sprintf("🏆 <b>Leader:</b> %s (%s%%)\n",
			html.EscapeString(leader.Instrument.Name), signed(leader.DisplayReturnPct())))
		b.WriteString(signalLine(ev.Signal, true))
		b.WriteString("\n")
	}

	if runErr != nil {
		b.WriteString(fmt.Sprintf("❌ <b>No signal:</b> %s\n", html.EscapeString(runFailure(runErr))))
	}

	if ev != nil && len(ev.Exclusions) > 0 {
		b.WriteString("\n⚠️ <b>Excluded:</b>\n")
		for _, ex := range ev.Exclusions {
			b.WriteString(fmt.Sprintf("  • %s: %s\n",
				html.EscapeString(ex.Instrument.Name), strategy.ReasonCode(ex.Reason)))
		}
	}
	return b.String()
}

// FormatWindow formats the analysed interval for a reference date.
func FormatWindow(asOf time.Time, w model.Window) string {
	return fmt.Sprintf("📅 Analysis date: %s\nMomentum window (12-1): <b>%s</b> to <b>%s</b>",
		asOf.Format("2006-01-02"), w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// WriteConsoleReport renders a run as a plain-text table.
func WriteConsoleReport(w io.Writer, asOf time.Time, ev *strategy.Evaluation, runErr error) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Analysis date: %s\n", asOf.Format("2006-01-02")))
	if ev != nil {
		b.WriteString(fmt.Sprintf("Momentum window (12-1): %s to %s\n",
			ev.Window.Start.Format("2006-01-02"), ev.Window.End.Format("2006-01-02")))
	}
	if _, err := io.WriteString(w, b.String()+"\n"); err != nil {
		return err
	}

	if ev != nil && len(ev.Ranked) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tETF\tTicker\tStart\tEnd\tStart ($)\tEnd ($)\tReturn (%)\t")
		for i, r := range ev.Ranked {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				i+1, r.Instrument.Name, r.Instrument.Symbol,
				r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"),
				r.DisplayStartPrice().StringFixed(2), r.DisplayEndPrice().StringFixed(2),
				r.DisplayReturnPct().StringFixed(2))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.Reset()
	if ev != nil && ev.Signal != nil {
		b.WriteString(fmt.Sprintf("\nLeader: %s (%s%%)\n",
			ev.Signal.Leader.Instrument.Name, signed(ev.Signal.Leader.DisplayReturnPct())))
		b.WriteString(signalLine(ev.Signal, false))
	}
	if runErr != nil {
		b.WriteString(fmt.Sprintf("\nNo signal: %s\n", runFailure(runErr)))
	}
	if ev != nil && len(ev.Exclusions) > 0 {
		b.WriteString("\nExcluded:\n")
		for _, ex := range ev.Exclusions {
			b.WriteString(fmt.Sprintf("  %s (%s): %v\n", ex.Instrument.Name, ex.Instrument.Symbol, ex.Reason))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// HelpText lists the bot commands.
func HelpText() string {
	return "Available commands:\n• /signal - run the GEM evaluation now\n• /window - show the current momentum window\n• /help - this message"
}

func signalLine(sig *model.Signal, htmlMode bool) string {
	name := sig.Chosen.Instrument.Name
	if htmlMode {
		name = "<b>" + html.EscapeString(name) + "</b>"
	}
	switch sig.Action {
	case model.ActionBuyRiskAsset:
		return fmt.Sprintf("✅ SIGNAL: Buy/Hold %s (risk asset)\n", name)
	default:
		return fmt.Sprintf("🛡️ SIGNAL: Flee to safe haven → %s (safe haven)\n", name)
	}
}

func runFailure(err error) string {
	switch {
	case errors.Is(err, strategy.ErrNoDataAvailable):
		return "could not fetch data for any instrument"
	case errors.Is(err, strategy.ErrNoSafeHavenAvailable):
		return "no safe haven instrument could be evaluated"
	default:
		return err.Error()
	}
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
