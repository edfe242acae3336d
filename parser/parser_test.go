package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExtractsURLsInOrder(t *testing.T) {
	msg := "🔥 Combo deal!\nhttps://example.com/a\nsome text\nhttps://example.com/b"
	parsed := Parse(msg)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, parsed.URLs)
}

func TestParseZeroURLs(t *testing.T) {
	parsed := Parse("Good morning everyone! Deals coming up at noon 😄")
	assert.Empty(t, parsed.URLs)
}

func TestParseDeduplicatesRepeatedURL(t *testing.T) {
	parsed := Parse("https://example.com/a and again https://example.com/a")
	assert.Equal(t, []string{"https://example.com/a"}, parsed.URLs)
}

func TestParseUnwrapsMarkdownLinks(t *testing.T) {
	parsed := Parse("[Steal deal](https://example.com/deal) and <https://example.com/other>")

	assert.Equal(t, []string{"https://example.com/deal", "https://example.com/other"}, parsed.URLs)
}

func TestParseTrimsTrailingPunctuation(t *testing.T) {
	parsed := Parse("check https://example.com/deal.")
	assert.Equal(t, []string{"https://example.com/deal"}, parsed.URLs)
}

func TestParsePriceHints(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCurrent  string
		wantOriginal string
	}{
		{
			name:         "sale and regular price keep order",
			text:         "Sale price Rs. 87 Regular price Rs. 399 https://example.com/p",
			wantCurrent:  "Rs. 87",
			wantOriginal: "Rs. 399",
		},
		{
			name:        "single rupee symbol price",
			text:        "Bluetooth speaker at ₹1,299 only! https://example.com/p",
			wantCurrent: "₹1,299",
		},
		{
			name: "no price at all",
			text: "New arrivals https://example.com/p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := Parse(tt.text)
			assert.Equal(t, tt.wantCurrent, parsed.PriceHint)
			assert.Equal(t, tt.wantOriginal, parsed.OriginalPriceHint)
		})
	}
}

func TestParseTitleHint(t *testing.T) {
	msg := "🔥🔥🔥\nboAt Rockerz 450 Headphones\nhttps://example.com/p"
	parsed := Parse(msg)
	assert.Equal(t, "boAt Rockerz 450 Headphones", parsed.TitleHint)
}

func TestParseTitleHintSkipsURLAndEmojiLines(t *testing.T) {
	msg := "⚡⚡\nhttps://example.com/p\nOnly here"
	parsed := Parse(msg)
	assert.Equal(t, "Only here", parsed.TitleHint)
}
