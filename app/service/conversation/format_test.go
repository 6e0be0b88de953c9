package conversation

import (
	"strings"
	"testing"

	"propchat/app/client/searchbot"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name  string
		price searchbot.Price
		want  string
	}{
		{"missing", searchbot.Price{}, "Price on request"},
		{"millions", searchbot.NewPrice(1500000), "AED 1,500,000"},
		{"hundreds", searchbot.NewPrice(950), "AED 950"},
		{"fraction", searchbot.NewPrice(1234.5), "AED 1,234.5"},
		{"zero", searchbot.NewPrice(0), "AED 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrice("AED", tt.price); got != tt.want {
				t.Errorf("FormatPrice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCard(t *testing.T) {
	card := formatCard("AED", searchbot.Property{
		Title:     "Marina View",
		Location:  "Dubai Marina",
		Price:     searchbot.NewPrice(2100000),
		Bedrooms:  searchbot.NewCount("2"),
		Bathrooms: searchbot.NewCount("3"),
		Highlight: "Sea view balcony",
	})

	want := Card{
		Highlight: "✨ Sea view balcony",
		Title:     "🏠 Marina View",
		Location:  "📍 Dubai Marina",
		Price:     "💰 AED 2,100,000",
		Details:   "🛏️ 2 beds | 🛁 3 baths",
	}
	if card != want {
		t.Errorf("formatCard() = %+v, want %+v", card, want)
	}
}

func TestFormatCard_Defaults(t *testing.T) {
	card := formatCard("AED", searchbot.Property{})

	if card.Title != "🏠 Property" || card.Location != "📍 N/A" {
		t.Errorf("title/location = %q / %q", card.Title, card.Location)
	}
	if card.Price != "💰 Price on request" {
		t.Errorf("price = %q", card.Price)
	}
	if card.Details != "🛏️ N/A beds | 🛁 N/A baths" {
		t.Errorf("details = %q", card.Details)
	}
	if card.Highlight != "" {
		t.Errorf("highlight = %q, want empty", card.Highlight)
	}
}

func TestEntryString(t *testing.T) {
	entry := Entry{
		Sender: SenderBot,
		Kind:   KindResults,
		Cards:  formatCards("AED", []searchbot.Property{{Title: "A"}, {Title: "B", Highlight: "Pool"}}),
	}

	got := entry.String()
	if !strings.Contains(got, "🏠 A") || !strings.Contains(got, "✨ Pool\n🏠 B") {
		t.Errorf("String() = %q", got)
	}
	if strings.Count(got, "\n\n") != 1 {
		t.Errorf("cards should be separated by one blank line: %q", got)
	}

	if got := (Entry{Text: "hello"}).String(); got != "hello" {
		t.Errorf("String() = %q, want hello", got)
	}
}
