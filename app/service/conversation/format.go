package conversation

import (
	"fmt"
	"strings"

	"propchat/app/client/searchbot"

	"github.com/elliotchance/pie/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	priceOnRequest = "Price on request"
	notAvailable   = "N/A"
	defaultTitle   = "Property"
)

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders "Price on request" for a missing price and a
// currency-prefixed, thousands-grouped amount otherwise.
func FormatPrice(currency string, price searchbot.Price) string {
	if !price.Valid {
		return priceOnRequest
	}

	return currency + " " + pricePrinter.Sprint(number.Decimal(price.Value, number.MaxFractionDigits(3)))
}

func formatCount(c searchbot.Count) string {
	if !c.Valid {
		return notAvailable
	}

	return c.Text
}

func formatCard(currency string, p searchbot.Property) Card {
	card := Card{
		Title:    "🏠 " + orDefault(p.Title, defaultTitle),
		Location: "📍 " + orDefault(p.Location, notAvailable),
		Price:    "💰 " + FormatPrice(currency, p.Price),
		Details:  fmt.Sprintf("🛏️ %s beds | 🛁 %s baths", formatCount(p.Bedrooms), formatCount(p.Bathrooms)),
	}

	if p.Highlight != "" {
		card.Highlight = "✨ " + p.Highlight
	}

	return card
}

func formatCards(currency string, properties []searchbot.Property) []Card {
	return pie.Map(properties, func(p searchbot.Property) Card {
		return formatCard(currency, p)
	})
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

// String renders the card as plain lines for text-only front ends.
func (c Card) String() string {
	lines := make([]string, 0, 5)
	if c.Highlight != "" {
		lines = append(lines, c.Highlight)
	}

	lines = append(lines, c.Title, c.Location, c.Price, c.Details)

	return strings.Join(lines, "\n")
}

// String renders the entry as plain text, cards separated by blank lines.
func (e Entry) String() string {
	if len(e.Cards) == 0 {
		return e.Text
	}

	parts := pie.Map(e.Cards, func(c Card) string {
		return c.String()
	})
	if e.Text != "" {
		parts = append([]string{e.Text}, parts...)
	}

	return strings.Join(parts, "\n\n")
}
