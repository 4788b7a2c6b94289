package notifier

import (
	"fmt"
	"html"
	"strings"

	"RSIRadar/internal/favorites"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/ranking"
)

// FormatProgress formats the scan progress for /progress.
func FormatProgress(s progress.State) string {
	var b strings.Builder
	b.WriteString("📡 <b>RSIRadar progress</b>\n\n")
	switch s.Phase {
	case progress.PhaseLoading:
		b.WriteString(fmt.Sprintf("Loading: %d%% (%d/%d)\n", s.CoveragePercent, s.Covered, s.Total))
		b.WriteString(fmt.Sprintf("Remaining batches: %d, about %ds\n", s.RemainingBatches, s.ETASeconds))
	case progress.PhaseSettling:
		b.WriteString(fmt.Sprintf("All %d symbols loaded, settling in %ds\n", s.Total, s.Countdown))
	default:
		b.WriteString(fmt.Sprintf("Settled ✅ %d symbols on rotation\n", s.Total))
	}
	return b.String()
}

// FormatSettled is sent once when the first full cycle completes.
func FormatSettled(s progress.State) string {
	return fmt.Sprintf("✅ <b>Scan settled</b>\n\nEvery one of %d symbols has an RSI value; values now refresh on rotation.", s.Total)
}

// FormatExtremes formats a top or bottom list.
func FormatExtremes(title string, recs []model.MetricRecord, displayName func(string) string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", html.EscapeString(title)))
	if len(recs) == 0 {
		b.WriteString("No RSI values yet.")
		return b.String()
	}
	for i, rec := range recs {
		b.WriteString(fmt.Sprintf("%d. %s  %.2f%s\n", i+1, displayName(rec.Symbol), rec.RSI, zoneMark(ranking.Classify(rec))))
	}
	return b.String()
}

// FormatFavorites formats the favorite cards for /favorites.
func FormatFavorites(cards []favorites.Card) string {
	var b strings.Builder
	b.WriteString("⭐ <b>Favorites</b>\n\n")
	if len(cards) == 0 {
		b.WriteString("None yet. Add one with /add btc")
		return b.String()
	}
	for _, c := range cards {
		b.WriteString(formatCardLine(c))
		b.WriteString("\n")
	}
	return b.String()
}

func formatCardLine(c favorites.Card) string {
	if c.Loading {
		return fmt.Sprintf("%s  loading…", c.DisplayName)
	}
	v, ok := c.Record.Value()
	if !ok {
		return fmt.Sprintf("%s  %s  (%s)", c.DisplayName, c.Price.String(), c.Record.Placeholder())
	}
	return fmt.Sprintf("%s  %s  RSI %.2f%s", c.DisplayName, c.Price.String(), v, zoneMark(c.Zone))
}

// FormatZoneAlert is sent when a favorite enters overbought or oversold.
func FormatZoneAlert(c favorites.Card) string {
	head := "🔴 <b>Overbought</b>"
	if c.Zone == ranking.ZoneOversold {
		head = "🟢 <b>Oversold</b>"
	}
	return fmt.Sprintf("%s | %s\n\nRSI %.2f at %s", head, c.DisplayName, c.Record.RSI, c.Price.String())
}

func zoneMark(z ranking.Zone) string {
	switch z {
	case ranking.ZoneOverbought:
		return " 🔴"
	case ranking.ZoneOversold:
		return " 🟢"
	default:
		return ""
	}
}
