// Package scraper fetches merchant pages and extracts product metadata via
// ordered, platform-specific selector fallback chains.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"deals-bot/models"
	"deals-bot/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
)

// Scraper extracts ScrapedMetadata from merchant pages, best-effort.
type Scraper struct {
	client      *http.Client
	maxAttempts int
}

// New builds a scraper from the scraper.* config block.
func New() *Scraper {
	timeout := time.Duration(viper.GetInt("scraper.timeout_seconds")) * time.Second
	return &Scraper{
		client:      utils.NewHTTPClient(timeout),
		maxAttempts: viper.GetInt("scraper.max_attempts"),
	}
}

// Scrape fetches the page and runs every field chain for the detected
// platform. A page where nothing matches still returns an all-absent
// ScrapedMetadata: whether that is enough to keep the candidate is the
// validator's call, not ours.
func (s *Scraper) Scrape(ctx context.Context, canonicalURL string) (models.ScrapedMetadata, error) {
	doc, err := s.fetch(ctx, canonicalURL)
	if err != nil {
		return models.ScrapedMetadata{}, fmt.Errorf("scrape %s: %w", canonicalURL, err)
	}

	parsed, err := url.Parse(canonicalURL)
	if err != nil {
		return models.ScrapedMetadata{}, fmt.Errorf("scrape %s: %w", canonicalURL, err)
	}
	rules := platformRules[detectPlatform(parsed.Hostname())]

	meta := models.ScrapedMetadata{
		Name:             firstMatch(doc, rules.name),
		CurrentPriceRaw:  firstMatch(doc, rules.currentPrice),
		OriginalPriceRaw: firstMatch(doc, rules.originalPrice),
		ImageURL:         firstMatch(doc, rules.image),
		Rating:           firstFloat(doc, rules.rating),
		ReviewCount:      firstInt(doc, rules.reviewCount),
	}

	// Last resort for prices: the "sale price … regular price …" phrase
	// pattern in the page text.
	if meta.CurrentPriceRaw == nil {
		current, original := priceLadder(doc)
		meta.CurrentPriceRaw = current
		if meta.OriginalPriceRaw == nil {
			meta.OriginalPriceRaw = original
		}
	}

	return meta, nil
}

// fetch GETs the page with bounded retries and parses it with goquery.
// Non-2xx statuses count as transient (merchants rate-limit with 503/429).
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		utils.SetBrowserHeaders(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status code: %s", resp.Status)
		}

		parsed, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse html: %w", err))
		}
		doc = parsed
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), uint64(s.maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return doc, nil
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// firstMatch evaluates a fallback chain and returns the first non-empty
// result, or nil when no rule matched (explicit absence).
func firstMatch(doc *goquery.Document, rules []extractRule) *string {
	for _, rule := range rules {
		sel := doc.Find(rule.selector).First()
		if sel.Length() == 0 {
			continue
		}

		var value string
		if rule.attr == "" {
			value = sel.Text()
		} else {
			value, _ = sel.Attr(rule.attr)
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return &value
		}
	}
	return nil
}

var leadingFloatRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

func firstFloat(doc *goquery.Document, rules []extractRule) *float64 {
	raw := firstMatch(doc, rules)
	if raw == nil {
		return nil
	}
	match := leadingFloatRe.FindString(*raw)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

var leadingIntRe = regexp.MustCompile(`[0-9][0-9,]*`)

func firstInt(doc *goquery.Document, rules []extractRule) *int {
	raw := firstMatch(doc, rules)
	if raw == nil {
		return nil
	}
	match := leadingIntRe.FindString(*raw)
	if match == "" {
		return nil
	}
	value, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return nil
	}
	return &value
}

// priceLadder parses the free-text "sale price ₹87 … regular price ₹399"
// pattern. Order is authoritative: the first priced phrase is the current
// price and the second is the original, never the reverse.
var pricePhraseRe = regexp.MustCompile(`(?i)price[^0-9₹$€£]{0,12}(?:₹|Rs\.?|INR|\$|€|£)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

func priceLadder(doc *goquery.Document) (current, original *string) {
	text := doc.Find("body").Text()
	matches := pricePhraseRe.FindAllStringSubmatch(text, 2)
	if len(matches) >= 1 {
		current = &matches[0][1]
	}
	if len(matches) >= 2 {
		original = &matches[1][1]
	}
	return current, original
}
