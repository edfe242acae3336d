// Package normalizer turns raw scraped/parsed values into validated numeric
// fields. Everything here is a pure function of its inputs.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"deals-bot/models"
)

// Rejection reasons. Callers log these and write no record.
var (
	ErrNoName      = errors.New("name missing or too short")
	ErrNoPrice     = errors.New("no usable current price")
	ErrNotAPrice   = errors.New("value is not a price")
	ErrNonPositive = errors.New("price is not positive")
)

const minNameRunes = 3

// Bounds is the sane-price window. Prices outside it are dropped (the field,
// not the record; a record that loses its current price is then rejected for
// having no price at all).
type Bounds struct {
	Min float64
	Max float64
}

// Result is a fully validated set of catalog fields.
type Result struct {
	Name          string
	CurrentPrice  float64
	OriginalPrice *float64
	DiscountPct   *int
}

var (
	currencyRe = regexp.MustCompile(`(?i)₹|Rs\.?|INR|USD|\$|€|£`)
	numberRe   = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
)

// ParsePrice extracts a decimal from a currency-formatted string,
// tolerating symbols, currency words and digit grouping ("₹1,23,999").
func ParsePrice(raw string) (float64, error) {
	cleaned := currencyRe.ReplaceAllString(raw, "")
	match := numberRe.FindString(cleaned)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNotAPrice, raw)
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotAPrice, raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNonPositive, raw)
	}
	return value, nil
}

// Hints are the message-text fallbacks from the parser; a hint only fills
// a field the scraper could not.
type Hints struct {
	Title         string
	Price         string
	OriginalPrice string
}

// Normalize merges scraped metadata with parser hints and enforces the
// price invariants. Scraped values outrank hints. Returns a rejection error
// when no acceptable name or current price survives.
func Normalize(meta models.ScrapedMetadata, hints Hints, b Bounds) (Result, error) {
	name := strings.TrimSpace(stringOr(meta.Name, hints.Title))
	if utf8.RuneCountInString(name) < minNameRunes {
		return Result{}, ErrNoName
	}

	current := parseBounded(stringOr(meta.CurrentPriceRaw, hints.Price), b)
	if current == nil {
		return Result{}, ErrNoPrice
	}

	original := parseBounded(stringOr(meta.OriginalPriceRaw, hints.OriginalPrice), b)
	// An "original" price at or below the sale price is a display decision,
	// not a data error: treat it as absent.
	if original != nil && *current >= *original {
		original = nil
	}

	var discount *int
	if original != nil {
		pct := int(math.Round((*original - *current) / *original * 100))
		discount = &pct
	}

	return Result{
		Name:          name,
		CurrentPrice:  *current,
		OriginalPrice: original,
		DiscountPct:   discount,
	}, nil
}

// parseBounded parses a raw price and drops it if implausible.
func parseBounded(raw string, b Bounds) *float64 {
	if raw == "" {
		return nil
	}
	value, err := ParsePrice(raw)
	if err != nil {
		return nil
	}
	if value < b.Min || value > b.Max {
		return nil
	}
	return &value
}

func stringOr(ptr *string, fallback string) string {
	if ptr != nil && strings.TrimSpace(*ptr) != "" {
		return *ptr
	}
	return fallback
}
