package notifier

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"pricecast/internal/forecast"
	"pricecast/internal/model"
	"pricecast/internal/oracle"
)

// FormatForecast renders a forecast as an HTML table for Telegram. The first
// row is the last known observation the forecast starts from.
func FormatForecast(symbol string, f *model.Forecast) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s forecast</b> | through %s\n\n",
		html.EscapeString(symbol), f.EndDate.Format(model.DateLayout)))

	b.WriteString("<pre>\n")
	b.WriteString(fmt.Sprintf("%-10s  %10s\n", "Date", "Close"))
	b.WriteString(fmt.Sprintf("%-10s  %10.2f *\n", f.LastKnown.Date.Format(model.DateLayout), f.LastKnown.Value))
	for _, p := range f.Points {
		b.WriteString(fmt.Sprintf("%-10s  %10.2f\n", p.Date.Format(model.DateLayout), p.Value))
	}
	b.WriteString("</pre>\n")

	if final, ok := f.Final(); ok {
		change := final.Value - f.LastKnown.Value
		pct := 0.0
		if f.LastKnown.Value != 0 {
			pct = change / f.LastKnown.Value * 100
		}
		b.WriteString(fmt.Sprintf("Change: %+.2f (%+.1f%%) over %d trading days\n", change, pct, len(f.Points)))
	} else {
		b.WriteString("No trading days in the requested range.\n")
	}
	b.WriteString(fmt.Sprintf("* last known close | window %d | horizon %s\n",
		f.WindowSize, f.HorizonEnd.Format(model.DateLayout)))
	return b.String()
}

// FormatBounds renders the selectable end-date range.
func FormatBounds(minDate, maxDate time.Time) string {
	return fmt.Sprintf("📅 <b>Forecast range</b>\n\nEarliest end date: %s\nLatest end date: %s\n",
		minDate.Format(model.DateLayout), maxDate.Format(model.DateLayout))
}

// FormatError turns a forecast failure into a short user-facing message.
func FormatError(err error) string {
	var ie *oracle.InferenceError
	switch {
	case errors.Is(err, forecast.ErrNoForecastNeeded):
		return "ℹ️ The end date is the last known date, nothing to forecast."
	case errors.Is(err, forecast.ErrInvalidRange):
		return "❌ The end date must be after the last known date."
	case errors.Is(err, forecast.ErrOutOfHorizon):
		return "❌ The end date is beyond the forecast horizon. Use /bounds to see the allowed range."
	case errors.As(err, &ie):
		return "❌ Model inference failed, please try again later."
	default:
		return fmt.Sprintf("❌ Forecast failed: %s", html.EscapeString(err.Error()))
	}
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Available commands:\n• /forecast YYYY-MM-DD\n• /bounds"
}
