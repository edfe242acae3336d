// Package parser extracts URL candidates and inline hints from raw
// promotional message text.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"deals-bot/models"
)

var (
	urlRe = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)

	// A currency marker followed by digits, e.g. "₹499", "Rs. 1,299", "$12.50".
	priceHintRe = regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR|\$|€|£)\s*[0-9][0-9,]*(?:\.[0-9]+)?`)
)

// Parse scans a message for candidate URLs and best-effort hints. URLs keep
// the order they appear in: a multi-URL message is a bundle whose positions
// are meaningful for display ordering downstream.
func Parse(rawText string) models.ParsedMessage {
	text := stripMarkdown(rawText)

	var urls []string
	seen := make(map[string]bool)
	for _, match := range urlRe.FindAllString(text, -1) {
		u := trimTrailingPunctuation(match)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}

	parsed := models.ParsedMessage{
		URLs:      urls,
		TitleHint: titleHint(text),
	}
	prices := priceHintRe.FindAllString(text, 2)
	if len(prices) >= 1 {
		parsed.PriceHint = prices[0]
	}
	if len(prices) >= 2 {
		parsed.OriginalPriceHint = prices[1]
	}
	return parsed
}

// stripMarkdown unwraps the link syntaxes promotional Discord posts arrive
// with: [title](url) and <url>. The URL regexp would otherwise swallow the
// closing bracket or miss the angle-wrapped form entirely.
func stripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "](", "] (")
	return strings.NewReplacer("<", " ", ">", " ").Replace(text)
}

// trimTrailingPunctuation drops sentence punctuation that the URL pattern
// greedily captured, e.g. a trailing "." or "," at the end of a line.
func trimTrailingPunctuation(u string) string {
	return strings.TrimRight(u, ".,;:!?")
}

// titleHint returns the first substantive line of the message: not a URL,
// not a price token, and containing at least a few letters (this skips
// emoji-only and decoration-only lines).
func titleHint(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if urlRe.MatchString(line) {
			continue
		}
		candidate := priceHintRe.ReplaceAllString(line, "")
		if letterCount(candidate) < 4 {
			continue
		}
		return line
	}
	return ""
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
